package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/background-remover/internal/api/handlers/job"
	"github.com/aliskhannn/background-remover/internal/middleware"
)

func Setup(h *job.Handler) *ginext.Engine {
	r := ginext.New()

	r.Use(middleware.CORSMiddleware())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	r.POST("/remove_background", h.RemoveBackground) // submitting a background-removal job
	r.GET("/get_result", h.GetResult)                // polling job results by id

	return r
}
