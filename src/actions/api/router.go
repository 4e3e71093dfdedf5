package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stake-plus/bountyboard/src/bounty"
	sharedconfig "github.com/stake-plus/bountyboard/src/data/config"
)

// New builds the API router.
func New(cfg *sharedconfig.APIConfig, engine *bounty.Engine, dispatcher Dispatcher) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	attachRoutes(g, cfg, engine, dispatcher)
	return g
}

func attachRoutes(r *gin.Engine, cfg *sharedconfig.APIConfig, engine *bounty.Engine, dispatcher Dispatcher) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := NewBounties(engine, dispatcher)

	v1 := r.Group("/v1")
	v1.Use(JWTMiddleware([]byte(cfg.JWTSecret)))
	{
		v1.GET("/bounties", h.List)
		v1.POST("/bounties", h.Create)
		v1.GET("/bounties/:id", h.Get)
		v1.POST("/bounties/:id/claim", h.Claim)
		v1.POST("/bounties/:id/complete", h.Complete)
		v1.POST("/bounties/:id/preverification", h.PreVerification)
		v1.POST("/bounties/:id/verification", h.Verification)

		v1.GET("/members/:id", h.GetMember)
		v1.GET("/members/:id/bounties", h.MemberBounties)
		v1.POST("/members/:id/promote", h.Promote)
		v1.POST("/members/:id/credits", h.AdjustCredits)
	}
}
