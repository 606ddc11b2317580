package router

import "github.com/gin-gonic/gin"

// Module owns a route group. Register is called once by Registry.RegisterAll
// after the shared middlewares are attached.
type Module interface {
	Register(rg *gin.RouterGroup)
}
