package router

import (
	"net/http"

	"Forum_Community/internal/handler"
	"Forum_Community/internal/middleware"
	"Forum_Community/internal/pkg"
	"Forum_Community/internal/repository/mysql"
	"Forum_Community/internal/service"

	"github.com/gin-gonic/gin"
)

// Deps 路由依赖的服务
type Deps struct {
	Store     *mysql.Store
	Issuer    *pkg.TokenIssuer
	Sessions  middleware.SessionStore
	Users     *service.UserService
	Community *service.CommunityService
	Posts     *service.PostService
	Comments  *service.CommentService
	Media     *service.MediaService
}

func InitRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	r.MaxMultipartMemory = 8 << 20

	user := handler.NewUserHandler(d.Users, d.Community)
	community := handler.NewCommunityHandler(d.Community)
	post := handler.NewPostHandler(d.Posts)
	comment := handler.NewCommentHandler(d.Comments)
	media := handler.NewMediaHandler(d.Media)

	auth := middleware.AuthMiddleware(d.Issuer, d.Sessions)

	r.GET("/api/health", func(c *gin.Context) {
		sqlDB, err := d.Store.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 用户相关接口
	userGroup := r.Group("/api/user")
	{
		userGroup.POST("/register", user.Register)
		userGroup.POST("/login", user.Login)
		userGroup.POST("/logout", auth, user.Logout)
		userGroup.POST("/change-password", auth, user.ChangePassword)
		userGroup.GET("/me", auth, user.Me)
		userGroup.PATCH("/me", auth, user.UpdateMe)
		userGroup.GET("/me/communities", auth, user.MyCommunities)
	}

	// token相关接口
	tokenGroup := r.Group("/api/token")
	{
		tokenGroup.POST("/refresh", user.TokenRefresh)
	}

	// 社区相关接口
	communityGroup := r.Group("/api/communities")
	{
		communityGroup.GET("", community.List)
		communityGroup.GET("/:id", community.Get)
		communityGroup.POST("", auth, community.Create)
		communityGroup.PATCH("/:id", auth, community.Update)
		communityGroup.POST("/:id/join", auth, community.Join)
		communityGroup.DELETE("/:id/join", auth, community.Leave)
		communityGroup.GET("/:id/posts", post.ListByCommunity)
		communityGroup.POST("/:id/posts", auth, post.CreatePost)
	}

	// 帖子与评论
	postGroup := r.Group("/api/posts")
	{
		postGroup.GET("/:id", post.Get)
		postGroup.GET("/:id/comments", comment.List)
		postGroup.POST("/:id/comments", auth, comment.Create)
	}

	// 媒体
	mediaGroup := r.Group("/api/media")
	{
		mediaGroup.POST("/upload", auth, media.Upload)
		mediaGroup.GET("/presign", auth, media.Presign)
		mediaGroup.POST("/resolve", middleware.OptionalAuth(d.Issuer, d.Sessions), media.Resolve)
	}
	r.GET("/media/*key", media.Serve)

	return r
}
