package server

import "github.com/gin-gonic/gin"

// Registrar is the common interface every HTTP service implements to
// attach its routes to the API router group.
type Registrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}
