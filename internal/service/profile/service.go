package profile

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/oggyb/vivahvows/internal/app"
	"github.com/oggyb/vivahvows/internal/auth"
	"github.com/oggyb/vivahvows/internal/db"
	"github.com/oggyb/vivahvows/internal/httperr"
	"github.com/oggyb/vivahvows/internal/repository"
)

// Service implements the profile endpoints. Only "me" routes exist, so
// a user can never write another user's profile.
type Service struct {
	appCtx      *app.AppContext
	profileRepo *repository.ProfileRepository
}

// NewService creates the profile service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:      appCtx,
		profileRepo: repository.NewProfileRepository(appCtx.DB),
	}
}

// View is the owner-facing profile shape, preferences included.
type View struct {
	UserID      uint64         `json:"user_id"`
	Name        string         `json:"name"`
	DateOfBirth string         `json:"date_of_birth,omitempty"`
	Age         int            `json:"age,omitempty"`
	Gender      string         `json:"gender,omitempty"`
	City        string         `json:"city,omitempty"`
	Religion    string         `json:"religion,omitempty"`
	Education   string         `json:"education,omitempty"`
	Profession  string         `json:"profession,omitempty"`
	Bio         string         `json:"bio,omitempty"`
	Interests   []interestView `json:"interests"`

	PreferredGender   string `json:"preferred_gender,omitempty"`
	PreferredAgeMin   int    `json:"preferred_age_min"`
	PreferredAgeMax   int    `json:"preferred_age_max"`
	PreferredCity     string `json:"preferred_city,omitempty"`
	PreferredReligion string `json:"preferred_religion,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

type interestView struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// updateRequest carries partial profile updates; nil fields are untouched.
type updateRequest struct {
	Name        *string `json:"name"`
	DateOfBirth *string `json:"date_of_birth"`
	Gender      *string `json:"gender"`
	City        *string `json:"city"`
	Religion    *string `json:"religion"`
	Education   *string `json:"education"`
	Profession  *string `json:"profession"`
	Bio         *string `json:"bio"`

	PreferredGender   *string `json:"preferred_gender"`
	PreferredAgeMin   *int    `json:"preferred_age_min"`
	PreferredAgeMax   *int    `json:"preferred_age_max"`
	PreferredCity     *string `json:"preferred_city"`
	PreferredReligion *string `json:"preferred_religion"`

	InterestIDs *[]uint64 `json:"interest_ids"`
}

var validGenders = map[string]bool{"": true, "male": true, "female": true, "non_binary": true}

// Get fetches the user's own profile.
func (s *Service) Get(ctx context.Context, userID uint64) (*db.Profile, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.NotFound("profile not found")
		}
		return nil, err
	}
	return profile, nil
}

// Update applies the partial update to the user's own profile.
// Any write bumps updated_at, which feeds the suggestion tie-break.
func (s *Service) Update(ctx context.Context, userID uint64, req *updateRequest) (*db.Profile, error) {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		profile.Name = *req.Name
	}
	if req.DateOfBirth != nil {
		dob, err := time.ParseInLocation("2006-01-02", *req.DateOfBirth, time.UTC)
		if err != nil {
			return nil, httperr.Validation("date_of_birth must be formatted as YYYY-MM-DD")
		}
		if dob.After(time.Now().UTC()) {
			return nil, httperr.Validation("date_of_birth must be in the past")
		}
		profile.DateOfBirth = &dob
	}
	if req.Gender != nil {
		if !validGenders[*req.Gender] {
			return nil, httperr.Validation("gender must be one of male, female, non_binary")
		}
		profile.Gender = *req.Gender
	}
	if req.City != nil {
		profile.City = *req.City
	}
	if req.Religion != nil {
		profile.Religion = *req.Religion
	}
	if req.Education != nil {
		profile.Education = *req.Education
	}
	if req.Profession != nil {
		profile.Profession = *req.Profession
	}
	if req.Bio != nil {
		profile.Bio = *req.Bio
	}

	if req.PreferredGender != nil {
		if !validGenders[*req.PreferredGender] {
			return nil, httperr.Validation("preferred_gender must be one of male, female, non_binary")
		}
		profile.PreferredGender = *req.PreferredGender
	}
	if req.PreferredAgeMin != nil {
		if *req.PreferredAgeMin < 18 || *req.PreferredAgeMin > 100 {
			return nil, httperr.Validation("preferred_age_min must be between 18 and 100")
		}
		profile.PreferredAgeMin = *req.PreferredAgeMin
	}
	if req.PreferredAgeMax != nil {
		if *req.PreferredAgeMax < 18 || *req.PreferredAgeMax > 100 {
			return nil, httperr.Validation("preferred_age_max must be between 18 and 100")
		}
		profile.PreferredAgeMax = *req.PreferredAgeMax
	}
	if profile.PreferredAgeMax > 0 && profile.PreferredAgeMin > profile.PreferredAgeMax {
		return nil, httperr.Validation("preferred_age_min must not exceed preferred_age_max")
	}
	if req.PreferredCity != nil {
		profile.PreferredCity = *req.PreferredCity
	}
	if req.PreferredReligion != nil {
		profile.PreferredReligion = *req.PreferredReligion
	}

	if err := s.profileRepo.Save(ctx, profile); err != nil {
		return nil, err
	}

	if req.InterestIDs != nil {
		if err := s.profileRepo.ReplaceInterests(ctx, profile, *req.InterestIDs); err != nil {
			return nil, err
		}
	}

	return profile, nil
}

// RegisterRoutes attaches the profile endpoints to the authenticated
// API group.
func (s *Service) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/profile/me", s.handleGetMe)
	rg.PUT("/profile/me", s.handleUpdateMe)
	rg.GET("/interests", s.handleListInterests)
}

func (s *Service) handleGetMe(c *gin.Context) {
	profile, err := s.Get(c.Request.Context(), auth.CurrentUserID(c))
	if err != nil {
		httperr.Render(c, err)
		return
	}
	c.JSON(http.StatusOK, toView(profile))
}

func (s *Service) handleUpdateMe(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Render(c, httperr.Validation(err.Error()))
		return
	}

	profile, err := s.Update(c.Request.Context(), auth.CurrentUserID(c), &req)
	if err != nil {
		httperr.Render(c, err)
		return
	}
	c.JSON(http.StatusOK, toView(profile))
}

func (s *Service) handleListInterests(c *gin.Context) {
	interests, err := s.profileRepo.ListInterests(c.Request.Context())
	if err != nil {
		httperr.Render(c, err)
		return
	}

	views := make([]interestView, 0, len(interests))
	for _, it := range interests {
		views = append(views, interestView{ID: it.ID, Name: it.Name})
	}
	c.JSON(http.StatusOK, views)
}

func toView(p *db.Profile) View {
	v := View{
		UserID:            p.UserID,
		Name:              p.Name,
		Gender:            p.Gender,
		City:              p.City,
		Religion:          p.Religion,
		Education:         p.Education,
		Profession:        p.Profession,
		Bio:               p.Bio,
		PreferredGender:   p.PreferredGender,
		PreferredAgeMin:   p.PreferredAgeMin,
		PreferredAgeMax:   p.PreferredAgeMax,
		PreferredCity:     p.PreferredCity,
		PreferredReligion: p.PreferredReligion,
		UpdatedAt:         p.UpdatedAt,
		Interests:         make([]interestView, 0, len(p.Interests)),
	}
	if p.DateOfBirth != nil {
		v.DateOfBirth = p.DateOfBirth.Format("2006-01-02")
	}
	if age := p.Age(); age >= 0 {
		v.Age = age
	}
	for _, it := range p.Interests {
		v.Interests = append(v.Interests, interestView{ID: it.ID, Name: it.Name})
	}
	return v
}
