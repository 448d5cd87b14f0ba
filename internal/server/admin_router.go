package server

import (
	"time"

	"github.com/kataras/iris/v12"

	"github.com/LeeDev428/rarevault-e-comm/internal/auth"
	"github.com/LeeDev428/rarevault-e-comm/internal/config"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/user"
	"github.com/LeeDev428/rarevault-e-comm/internal/infra/redis"
	"github.com/LeeDev428/rarevault-e-comm/internal/repository/mysql"
	"github.com/LeeDev428/rarevault-e-comm/internal/service"
)

// RegisterAdminRoutes 注册管理后台路由，独立端口部署，仅 admin 角色可用
func RegisterAdminRoutes(app *iris.Application, cfg *config.Config) {
	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)

	userRepo := mysql.NewUserRepository(db)
	itemRepo := mysql.NewItemRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	ratingRepo := mysql.NewRatingRepository(db)

	adminSvc := service.NewAdminService(userRepo, itemRepo, orderRepo)
	itemSvc := service.NewItemService(itemRepo, userRepo, ratingRepo, orderRepo, redisClient)
	userSvc := service.NewUserService(userRepo, &cfg.JWT)

	api := app.Party("/api")

	api.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"code": 0, "msg": "ok"})
	})

	// 管理后台也走普通登录，登录后由下面的中间件卡 admin 角色
	api.Post("/login", func(ctx iris.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		token, u, err := userSvc.Login(ctx.Request().Context(), req.Username, req.Password)
		if err != nil {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": err.Error()})
			return
		}
		if u.Role != user.RoleAdmin {
			ctx.StopWithJSON(403, iris.Map{"code": 403, "msg": "admin only"})
			return
		}
		ok(ctx, iris.Map{"token": token, "user": u.Public()})
	})

	adminAPI := api.Party("/", func(ctx iris.Context) {
		token := ctx.GetHeader("Authorization")
		if token == "" {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "missing token"})
			return
		}
		claims, err := auth.ParseToken(&cfg.JWT, token)
		if err != nil {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "invalid token"})
			return
		}
		if claims.Role != user.RoleAdmin {
			ctx.StopWithJSON(403, iris.Map{"code": 403, "msg": "admin only"})
			return
		}
		ctx.Values().Set("user_id", claims.UserID)
		ctx.Values().Set("username", claims.Username)
		ctx.Values().Set("role", claims.Role)
		ctx.Next()
	})

	// 全站概览
	adminAPI.Get("/dashboard", func(ctx iris.Context) {
		st, err := adminSvc.Dashboard(ctx.Request().Context())
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, st)
	})

	adminAPI.Get("/users", func(ctx iris.Context) {
		list, err := adminSvc.ListUsers(ctx.Request().Context())
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, publicProfiles(list))
	})

	adminAPI.Patch("/users/{id:int64}/toggle-status", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		u, err := adminSvc.ToggleUserActive(ctx.Request().Context(), id)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, u.Public())
	})

	// 违规商品下架（管理员可删除任意商品）
	adminAPI.Delete("/items/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		err := itemSvc.Delete(ctx.Request().Context(),
			ctx.Values().GetInt64Default("user_id", 0), user.RoleAdmin, id)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"deleted": id})
	})

	// 查看任意卖家收入报表
	adminAPI.Get("/sellers/{id:int64}/revenue", func(ctx iris.Context) {
		sellerID, _ := ctx.Params().GetInt64("id")
		to := time.Now()
		from := to.AddDate(0, 0, -30)
		if v := ctx.URLParam("from"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": "invalid from: " + err.Error()})
				return
			}
			from = t
		}
		if v := ctx.URLParam("to"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": "invalid to: " + err.Error()})
				return
			}
			to = t
		}
		rep, err := itemSvc.Revenue(ctx.Request().Context(), sellerID, from, to)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, rep)
	})

	// 运行时计数器，排障用
	adminAPI.Get("/monitor", func(ctx iris.Context) {
		ok(ctx, service.GetMonitor().GetStats())
	})

	adminAPI.Post("/monitor/reset", func(ctx iris.Context) {
		service.GetMonitor().Reset()
		ok(ctx, iris.Map{"reset": true})
	})
}
