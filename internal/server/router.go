package server

import (
	"time"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"

	"github.com/LeeDev428/rarevault-e-comm/internal/apperr"
	"github.com/LeeDev428/rarevault-e-comm/internal/auth"
	"github.com/LeeDev428/rarevault-e-comm/internal/config"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/item"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/user"
	"github.com/LeeDev428/rarevault-e-comm/internal/infra/mq"
	"github.com/LeeDev428/rarevault-e-comm/internal/infra/redis"
	"github.com/LeeDev428/rarevault-e-comm/internal/middleware"
	"github.com/LeeDev428/rarevault-e-comm/internal/repository/mysql"
	"github.com/LeeDev428/rarevault-e-comm/internal/service"
)

// fail 统一错误出口：业务错误按类别映射状态码，其余按 500 记日志
func fail(ctx iris.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == 500 {
		service.GetMonitor().RecordDBError()
		zap.L().Error("request failed", zap.String("path", ctx.Path()), zap.Error(err))
	}
	ctx.StopWithJSON(status, iris.Map{"code": status, "msg": err.Error()})
}

func ok(ctx iris.Context, data interface{}) {
	ctx.JSON(iris.Map{"code": 0, "data": data})
}

// publicProfiles 批量导出用户公开信息片段
func publicProfiles(users []*user.User) []user.PublicProfile {
	out := make([]user.PublicProfile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out
}

// RegisterRoutes 注册面向买家/卖家的 HTTP 路由
func RegisterRoutes(app *iris.Application, cfg *config.Config) {
	// 初始化基础设施
	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)
	mqConn := mq.Init(&cfg.RabbitMQ)
	events := mq.NewPublisher(mqConn)

	// 仓储与服务
	userRepo := mysql.NewUserRepository(db)
	itemRepo := mysql.NewItemRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	ratingRepo := mysql.NewRatingRepository(db)
	messageRepo := mysql.NewMessageRepository(db)

	userSvc := service.NewUserService(userRepo, &cfg.JWT)
	itemSvc := service.NewItemService(itemRepo, userRepo, ratingRepo, orderRepo, redisClient)
	orderSvc := service.NewOrderService(db, orderRepo, redisClient, events,
		time.Duration(cfg.Order.DebounceSeconds)*time.Second)
	ratingSvc := service.NewRatingService(db, ratingRepo, itemRepo, orderRepo, events)
	messageSvc := service.NewMessageService(messageRepo, userRepo)
	notifySvc := service.NewNotificationService(orderRepo, itemRepo, userRepo, messageRepo)

	ring := auth.NewRing(cfg.Auth.Nodes, cfg.Auth.HashReplicas)
	tokenCache := auth.NewTokenCache(redisClient, ring,
		time.Duration(cfg.Auth.TokenCacheTTLSeconds)*time.Second)

	api := app.Party("/api")

	// 健康检查
	api.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"code": 0, "msg": "ok"})
	})

	// 注册 / 登录
	api.Post("/register", func(ctx iris.Context) {
		var req struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		u, err := userSvc.Register(ctx.Request().Context(), req.Username, req.Email, req.Password, req.Role)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, u)
	})

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
		ok(ctx, iris.Map{"token": token, "user": u.Public()})
	})

	// 需要登录的接口：先查 token 缓存，未命中再解析并写回
	authAPI := api.Party("/", func(ctx iris.Context) {
		token := ctx.GetHeader("Authorization")
		if token == "" {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "missing token"})
			return
		}
		claims, hit, err := tokenCache.Get(ctx.Request().Context(), token)
		if err != nil || !hit {
			claims, err = auth.ParseToken(&cfg.JWT, token)
			if err != nil {
				ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "invalid token"})
				return
			}
			_ = tokenCache.Set(ctx.Request().Context(), token, claims)
		}
		ctx.Values().Set("user_id", claims.UserID)
		ctx.Values().Set("username", claims.Username)
		ctx.Values().Set("role", claims.Role)
		ctx.Next()
	})

	requireRole := func(roles ...string) iris.Handler {
		return func(ctx iris.Context) {
			role := ctx.Values().GetString("role")
			for _, r := range roles {
				if role == r {
					ctx.Next()
					return
				}
			}
			ctx.StopWithJSON(403, iris.Map{"code": 403, "msg": "access denied"})
		}
	}

	// ---------------- 商品 ----------------

	// 商品列表（分类/关键字/价格区间/成色筛选 + 排序 + 分页）
	authAPI.Get("/items", func(ctx iris.Context) {
		f := item.ListFilter{
			Category:      ctx.URLParam("category"),
			Search:        ctx.URLParam("q"),
			Condition:     ctx.URLParam("condition"),
			Sort:          ctx.URLParam("sort"),
			MinPriceCents: ctx.URLParamInt64Default("min_price", 0),
			MaxPriceCents: ctx.URLParamInt64Default("max_price", 0),
			Page:          ctx.URLParamIntDefault("page", 1),
			PerPage:       ctx.URLParamIntDefault("per_page", 10),
		}
		list, total, err := itemSvc.List(ctx.Request().Context(), f)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"items": list, "total": total, "page": f.Page, "per_page": f.PerPage})
	})

	// 商品详情
	authAPI.Get("/items/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		it, err := itemSvc.Get(ctx.Request().Context(), id)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, it)
	})

	// 卖家自己的商品列表（含非 active 状态）
	authAPI.Get("/seller/items", requireRole(user.RoleSeller, user.RoleAdmin), func(ctx iris.Context) {
		f := item.ListFilter{
			SellerID: ctx.Values().GetInt64Default("user_id", 0),
			Status:   ctx.URLParamDefault("status", item.StatusActive),
			Category: ctx.URLParam("category"),
			Search:   ctx.URLParam("q"),
			Page:     ctx.URLParamIntDefault("page", 1),
			PerPage:  ctx.URLParamIntDefault("per_page", 10),
		}
		list, total, err := itemSvc.List(ctx.Request().Context(), f)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"items": list, "total": total, "page": f.Page, "per_page": f.PerPage})
	})

	// 创建商品
	authAPI.Post("/items", requireRole(user.RoleSeller, user.RoleAdmin), func(ctx iris.Context) {
		var req struct {
			Title       string   `json:"title"`
			Description string   `json:"description"`
			Category    string   `json:"category"`
			PriceCents  int64    `json:"price_cents"`
			Stock       int64    `json:"stock"`
			Condition   string   `json:"condition"`
			Year        int      `json:"year"`
			Images      []string `json:"images"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		it, err := itemSvc.Create(ctx.Request().Context(), ctx.Values().GetInt64Default("user_id", 0),
			service.CreateItemRequest{
				Title:       req.Title,
				Description: req.Description,
				Category:    req.Category,
				PriceCents:  req.PriceCents,
				Stock:       req.Stock,
				Condition:   req.Condition,
				Year:        req.Year,
				ImageURLs:   req.Images,
			})
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, it)
	})

	// 更新商品（部分字段）
	authAPI.Put("/items/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		var req struct {
			Title       *string `json:"title"`
			Description *string `json:"description"`
			Category    *string `json:"category"`
			PriceCents  *int64  `json:"price_cents"`
			Stock       *int64  `json:"stock"`
			Condition   *string `json:"condition"`
			Year        *int    `json:"year"`
			Status      *string `json:"status"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		it, err := itemSvc.Update(ctx.Request().Context(),
			ctx.Values().GetInt64Default("user_id", 0), ctx.Values().GetString("role"), id,
			service.UpdateItemRequest{
				Title:       req.Title,
				Description: req.Description,
				Category:    req.Category,
				PriceCents:  req.PriceCents,
				Stock:       req.Stock,
				Condition:   req.Condition,
				Year:        req.Year,
				Status:      req.Status,
			})
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, it)
	})

	// 删除商品
	authAPI.Delete("/items/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		err := itemSvc.Delete(ctx.Request().Context(),
			ctx.Values().GetInt64Default("user_id", 0), ctx.Values().GetString("role"), id)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"deleted": id})
	})

	// 追加商品图片（只收路径，不处理字节）
	authAPI.Post("/items/{id:int64}/images", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		var req struct {
			ImageURL  string `json:"image_url"`
			IsPrimary bool   `json:"is_primary"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		img, err := itemSvc.AddImage(ctx.Request().Context(),
			ctx.Values().GetInt64Default("user_id", 0), ctx.Values().GetString("role"),
			id, req.ImageURL, req.IsPrimary)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, img)
	})

	// ---------------- 订单 ----------------

	// 下单
	authAPI.Post("/orders", middleware.OrderRateLimit(), func(ctx iris.Context) {
		var req struct {
			ItemID   int64 `json:"item_id"`
			Quantity int64 `json:"quantity"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		o, err := orderSvc.Place(ctx.Request().Context(),
			ctx.Values().GetInt64Default("user_id", 0), req.ItemID, req.Quantity)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, o)
	})

	// 买家订单列表
	authAPI.Get("/orders", func(ctx iris.Context) {
		list, err := orderSvc.ListForBuyer(ctx.Request().Context(),
			ctx.Values().GetInt64Default("user_id", 0))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	// 订单详情（买卖双方可见）
	authAPI.Get("/orders/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		o, err := orderSvc.GetForUser(ctx.Request().Context(),
			ctx.Values().GetInt64Default("user_id", 0), id)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, o)
	})

	// 卖家订单列表
	authAPI.Get("/seller/orders", requireRole(user.RoleSeller, user.RoleAdmin), func(ctx iris.Context) {
		list, err := orderSvc.ListForSeller(ctx.Request().Context(),
			ctx.Values().GetInt64Default("user_id", 0))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	// 状态迁移：卖家侧
	type reasonReq struct {
		Reason string `json:"reason"`
	}
	transition := func(run func(ctx iris.Context, actorID, orderID int64, reason string) (interface{}, error)) iris.Handler {
		return func(ctx iris.Context) {
			id, _ := ctx.Params().GetInt64("id")
			var req reasonReq
			// 没有 body 的迁移（confirm/ship 等）也要能调
			_ = ctx.ReadJSON(&req)
			out, err := run(ctx, ctx.Values().GetInt64Default("user_id", 0), id, req.Reason)
			if err != nil {
				fail(ctx, err)
				return
			}
			ok(ctx, out)
		}
	}

	authAPI.Post("/orders/{id:int64}/confirm", transition(func(ctx iris.Context, actorID, orderID int64, _ string) (interface{}, error) {
		return orderSvc.Confirm(ctx.Request().Context(), actorID, orderID)
	}))
	authAPI.Post("/orders/{id:int64}/decline", transition(func(ctx iris.Context, actorID, orderID int64, reason string) (interface{}, error) {
		return orderSvc.Decline(ctx.Request().Context(), actorID, orderID, reason)
	}))
	authAPI.Post("/orders/{id:int64}/cancel", transition(func(ctx iris.Context, actorID, orderID int64, reason string) (interface{}, error) {
		return orderSvc.Cancel(ctx.Request().Context(), actorID, orderID, reason)
	}))
	authAPI.Post("/orders/{id:int64}/ship", transition(func(ctx iris.Context, actorID, orderID int64, _ string) (interface{}, error) {
		return orderSvc.Ship(ctx.Request().Context(), actorID, orderID)
	}))
	authAPI.Post("/orders/{id:int64}/deliver", transition(func(ctx iris.Context, actorID, orderID int64, _ string) (interface{}, error) {
		return orderSvc.Deliver(ctx.Request().Context(), actorID, orderID)
	}))
	// 买家确认收货
	authAPI.Post("/orders/{id:int64}/received", transition(func(ctx iris.Context, actorID, orderID int64, _ string) (interface{}, error) {
		return orderSvc.MarkReceived(ctx.Request().Context(), actorID, orderID)
	}))

	// ---------------- 评分 ----------------

	authAPI.Post("/ratings", func(ctx iris.Context) {
		var req struct {
			ItemID   int64  `json:"item_id"`
			OrderID  int64  `json:"order_id"`
			Rating   int    `json:"rating"`
			Review   string `json:"review"`
			PhotoURL string `json:"photo_url"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		r, err := ratingSvc.Submit(ctx.Request().Context(), service.SubmitRatingRequest{
			UserID:   ctx.Values().GetInt64Default("user_id", 0),
			ItemID:   req.ItemID,
			OrderID:  req.OrderID,
			Rating:   req.Rating,
			Review:   req.Review,
			PhotoURL: req.PhotoURL,
		})
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, r)
	})

	authAPI.Get("/items/{id:int64}/ratings", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		list, err := ratingSvc.ListByItem(ctx.Request().Context(), id)
		if err != nil {
			fail(ctx, err)
			return
		}
		sum, err := ratingSvc.Summary(ctx.Request().Context(), id)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"ratings": list, "summary": sum})
	})

	// ---------------- 私信 ----------------

	authAPI.Post("/messages/send", middleware.MessageRateLimit(), func(ctx iris.Context) {
		var req struct {
			ReceiverID int64  `json:"receiver_id"`
			Message    string `json:"message"`
			ItemID     int64  `json:"item_id"`
			OrderID    int64  `json:"order_id"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		m, err := messageSvc.Send(ctx.Request().Context(),
			ctx.Values().GetInt64Default("user_id", 0), req.ReceiverID, req.Message, req.ItemID, req.OrderID)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, m)
	})

	authAPI.Get("/messages/conversations", func(ctx iris.Context) {
		list, err := messageSvc.Conversations(ctx.Request().Context(),
			ctx.Values().GetInt64Default("user_id", 0))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	authAPI.Get("/messages/conversation/{partner:int64}", func(ctx iris.Context) {
		partnerID, _ := ctx.Params().GetInt64("partner")
		page, err := messageSvc.Conversation(ctx.Request().Context(),
			ctx.Values().GetInt64Default("user_id", 0), partnerID,
			ctx.URLParamInt64Default("item_id", 0),
			ctx.URLParamIntDefault("page", 1),
			ctx.URLParamIntDefault("per_page", 50))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, page)
	})

	authAPI.Put("/messages/mark-read", func(ctx iris.Context) {
		var req struct {
			SenderID int64 `json:"sender_id"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		n, err := messageSvc.MarkRead(ctx.Request().Context(),
			ctx.Values().GetInt64Default("user_id", 0), req.SenderID)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"marked": n})
	})

	authAPI.Get("/messages/unread-count", func(ctx iris.Context) {
		n, err := messageSvc.UnreadCount(ctx.Request().Context(),
			ctx.Values().GetInt64Default("user_id", 0))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"unread_count": n})
	})

	// ---------------- 通知 ----------------

	authAPI.Get("/notifications/count", func(ctx iris.Context) {
		n, err := notifySvc.BuyerCount(ctx.Request().Context(),
			ctx.Values().GetInt64Default("user_id", 0))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"notification_count": n})
	})

	authAPI.Get("/notifications", func(ctx iris.Context) {
		list, err := notifySvc.BuyerList(ctx.Request().Context(),
			ctx.Values().GetInt64Default("user_id", 0))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"notifications": list, "total_count": len(list)})
	})

	authAPI.Post("/notifications/mark-seen", func(ctx iris.Context) {
		// 占位端点：没有已读落库
		_ = notifySvc.MarkSeen(ctx.Request().Context(),
			ctx.Values().GetInt64Default("user_id", 0))
		ok(ctx, iris.Map{"seen": true})
	})

	sellerAPI := authAPI.Party("/seller", requireRole(user.RoleSeller, user.RoleAdmin))

	sellerAPI.Get("/notifications/count", func(ctx iris.Context) {
		n, err := notifySvc.SellerCount(ctx.Request().Context(),
			ctx.Values().GetInt64Default("user_id", 0))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"notification_count": n})
	})

	sellerAPI.Get("/notifications", func(ctx iris.Context) {
		list, err := notifySvc.SellerList(ctx.Request().Context(),
			ctx.Values().GetInt64Default("user_id", 0))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"notifications": list, "total_count": len(list)})
	})

	sellerAPI.Get("/messages/unread-count", func(ctx iris.Context) {
		n, err := notifySvc.SellerUnreadMessages(ctx.Request().Context(),
			ctx.Values().GetInt64Default("user_id", 0))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"unread_count": n})
	})

	sellerAPI.Get("/dashboard/stats", func(ctx iris.Context) {
		st, err := itemSvc.SellerDashboard(ctx.Request().Context(),
			ctx.Values().GetInt64Default("user_id", 0))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, st)
	})

	// 收入报表，默认最近 30 天
	sellerAPI.Get("/revenue", func(ctx iris.Context) {
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
		rep, err := itemSvc.Revenue(ctx.Request().Context(),
			ctx.Values().GetInt64Default("user_id", 0), from, to)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, rep)
	})

	// ---------------- 个人资料 ----------------

	authAPI.Get("/profile", func(ctx iris.Context) {
		u, err := userSvc.Get(ctx.Request().Context(),
			ctx.Values().GetInt64Default("user_id", 0))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, u)
	})

	authAPI.Put("/profile", func(ctx iris.Context) {
		var req struct {
			FirstName *string `json:"first_name"`
			LastName  *string `json:"last_name"`
			Email     *string `json:"email"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		u, err := userSvc.UpdateProfile(ctx.Request().Context(),
			ctx.Values().GetInt64Default("user_id", 0),
			service.UpdateProfileRequest{
				FirstName: req.FirstName,
				LastName:  req.LastName,
				Email:     req.Email,
			})
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, u)
	})
}
