package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var seedInterests = []string{
	"travel", "cooking", "music", "reading", "fitness",
	"movies", "photography", "dancing", "cricket", "yoga",
}

var seedCities = []string{"Mumbai", "Delhi", "Bangalore", "Chennai", "Pune"}
var seedReligions = []string{"hindu", "muslim", "christian", "sikh"}

// SeedTestData resets the database and populates it with demo users,
// profiles, interests and match actions.
//
// Behavior:
//  1. Clears existing data in all tables.
//  2. Creates the interest catalogue.
//  3. Creates 20 users (10 male, 10 female) with hashed passwords and
//     filled profiles.
//  4. Generates ~100 actions with ~70% likes; every 3rd like is made
//     reciprocal, with the mutual match and chat room materialized the
//     same way the action processor would.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{
		"messages", "chat_rooms", "notifications", "mutual_matches",
		"match_actions", "profile_interests", "interests", "profiles", "users",
	} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	log.Println("Cleared existing data")

	// --- Interests ---
	interests := make([]Interest, 0, len(seedInterests))
	for _, name := range seedInterests {
		interests = append(interests, Interest{Name: name})
	}
	if err := db.Create(&interests).Error; err != nil {
		return fmt.Errorf("failed to seed interests: %w", err)
	}

	// --- Users + Profiles (10 male, 10 female) ---
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	users := make([]User, 0, 20)
	for i := 1; i <= 20; i++ {
		user := User{
			Username:     fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			Active:       true,
			LastLoginAt:  time.Now().Add(-time.Duration(r.Intn(500)) * time.Hour),
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		gender := "male"
		preferred := "female"
		if i > 10 {
			gender, preferred = preferred, gender
		}

		age := 21 + r.Intn(20)
		dob := time.Now().UTC().AddDate(-age, 0, -r.Intn(364))
		dob = time.Date(dob.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC)

		profile := Profile{
			UserID:          user.ID,
			Name:            fmt.Sprintf("User %d", i),
			DateOfBirth:     &dob,
			Gender:          gender,
			City:            seedCities[r.Intn(len(seedCities))],
			Religion:        seedReligions[r.Intn(len(seedReligions))],
			Bio:             "Looking for a meaningful connection.",
			PreferredGender: preferred,
			PreferredAgeMin: 21,
			PreferredAgeMax: 40,
		}

		// 2-4 random interests per profile
		perm := r.Perm(len(interests))
		for _, idx := range perm[:2+r.Intn(3)] {
			profile.Interests = append(profile.Interests, interests[idx])
		}

		if err := db.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}

		users = append(users, user)
	}
	log.Println("Seeded 20 users with profiles.")

	// --- Actions, with guaranteed mutual pairs every 3rd like ---
	upsert := clause.OnConflict{
		Columns:   []clause.Column{{Name: "initiator_id"}, {Name: "target_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}

	counter := 0
	for i, initiator := range users {
		for j := 0; j < 6; j++ {
			// pick from the opposite half so likes match the seeded preferences
			var target User
			if i < 10 {
				target = users[10+r.Intn(10)]
			} else {
				target = users[r.Intn(10)]
			}
			if target.ID == initiator.ID {
				continue
			}

			status := StatusRejected
			if r.Intn(100) < 70 {
				status = StatusLiked
			}

			if status == StatusLiked && counter%3 == 0 {
				// make it reciprocal and materialize the match artifacts
				recip := MatchAction{InitiatorID: target.ID, TargetID: initiator.ID, Status: StatusLiked}
				if err := db.Clauses(upsert).Create(&recip).Error; err != nil {
					return fmt.Errorf("failed to seed reciprocal action: %w", err)
				}

				low, high := initiator.ID, target.ID
				if low > high {
					low, high = high, low
				}
				pairConflict := clause.OnConflict{
					Columns:   []clause.Column{{Name: "user_one_id"}, {Name: "user_two_id"}},
					DoNothing: true,
				}
				if err := db.Clauses(pairConflict).Create(&MutualMatch{UserOneID: low, UserTwoID: high}).Error; err != nil {
					return fmt.Errorf("failed to seed mutual match: %w", err)
				}
				if err := db.Clauses(pairConflict).Create(&ChatRoom{UserOneID: low, UserTwoID: high}).Error; err != nil {
					return fmt.Errorf("failed to seed chat room: %w", err)
				}
			}

			action := MatchAction{InitiatorID: initiator.ID, TargetID: target.ID, Status: status}
			if err := db.Clauses(upsert).Create(&action).Error; err != nil {
				return fmt.Errorf("failed to seed action: %w", err)
			}

			counter++
		}
	}

	log.Println("Seeding completed.")
	return nil
}
