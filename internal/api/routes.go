package api

import (
	"net/http"

	"github.com/hashicorp/go-hclog"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/account"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/auth"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/catalog"
)

type Deps struct {
	Auth     *auth.Service
	Registry *account.Registry
	Store    *catalog.Store
	Events   http.Handler
	Logger   hclog.Logger
}

// Register mounts the JSON API and the health check on mux.
func Register(mux *http.ServeMux, d Deps) {
	mw := &Middleware{Registry: d.Registry, Logger: d.Logger}
	authHandler := &AuthHandler{Auth: d.Auth, Registry: d.Registry, Logger: d.Logger}
	userHandler := &UserHandler{Store: d.Store, Logger: d.Logger}
	catalogHandler := &CatalogHandler{Store: d.Store, Logger: d.Logger}
	commentHandler := &CommentHandler{Store: d.Store, Logger: d.Logger}
	adminHandler := &AdminHandler{Store: d.Store, Registry: d.Registry, Logger: d.Logger}

	protected := func(h http.HandlerFunc) http.Handler { return mw.AuthMiddleware(h) }
	admin := func(h http.HandlerFunc) http.Handler { return mw.RequireAdmin(h) }

	mux.HandleFunc("GET /health", Health)
	if d.Events != nil {
		mux.Handle("GET /api/events", d.Events)
	}

	// Auth
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/confirm", authHandler.ConfirmEmail)
	mux.HandleFunc("POST /api/auth/forgot-password", authHandler.ForgotPassword)
	mux.HandleFunc("POST /api/auth/reset-password", authHandler.ResetPassword)
	mux.Handle("POST /api/auth/logout", protected(authHandler.Logout))
	mux.Handle("POST /api/auth/update-password", protected(authHandler.UpdatePassword))

	// Current user
	mux.Handle("GET /api/me", protected(userHandler.GetMe))
	mux.Handle("PATCH /api/me", protected(userHandler.UpdateMe))
	mux.Handle("POST /api/me/avatar", protected(userHandler.UploadAvatar))
	mux.Handle("GET /api/me/lists/{list}", protected(userHandler.GetList))
	mux.Handle("PUT /api/me/lists/{list}/{id}", protected(userHandler.AddToList))
	mux.Handle("DELETE /api/me/lists/{list}/{id}", protected(userHandler.RemoveFromList))
	mux.Handle("POST /api/me/lists/{list}/{id}/toggle", protected(userHandler.ToggleList))

	// Catalog
	mux.HandleFunc("GET /api/content", catalogHandler.ListContent)
	mux.HandleFunc("GET /api/content/{slug}", catalogHandler.GetContent)
	mux.HandleFunc("POST /api/content/{id}/views", catalogHandler.IncrementViews)
	mux.HandleFunc("GET /api/content/{id}/comments", commentHandler.List)
	mux.HandleFunc("GET /api/search", catalogHandler.Search)
	mux.HandleFunc("GET /api/categories", catalogHandler.ListCategories)
	mux.HandleFunc("GET /api/settings", catalogHandler.GetSettings)

	// Comments
	mux.Handle("POST /api/comments", protected(commentHandler.Create))
	mux.Handle("POST /api/comments/{id}/vote", protected(commentHandler.Vote))

	// Admin
	mux.Handle("POST /api/admin/content", admin(adminHandler.CreateContent))
	mux.Handle("PUT /api/admin/content/{id}", admin(adminHandler.UpdateContent))
	mux.Handle("DELETE /api/admin/content/{id}", admin(adminHandler.DeleteContent))
	mux.Handle("POST /api/admin/categories", admin(adminHandler.CreateCategory))
	mux.Handle("PUT /api/admin/categories/{id}", admin(adminHandler.UpdateCategory))
	mux.Handle("DELETE /api/admin/categories/{id}", admin(adminHandler.DeleteCategory))
	mux.Handle("GET /api/admin/users", admin(adminHandler.ListUsers))
	mux.Handle("PATCH /api/admin/users/{id}", admin(adminHandler.UpdateUser))
	mux.Handle("GET /api/admin/comments", admin(adminHandler.ListComments))
	mux.Handle("DELETE /api/admin/comments/{id}", admin(adminHandler.DeleteComment))
	mux.Handle("PATCH /api/admin/settings", admin(adminHandler.UpdateSettings))
	mux.Handle("POST /api/admin/upload", admin(adminHandler.Upload))
	mux.Handle("GET /api/admin/stats", admin(adminHandler.Stats))
	mux.Handle("POST /api/admin/refresh", admin(adminHandler.Refresh))
}
