// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/almonhna/almonhna/internal/middleware"
	"github.com/almonhna/almonhna/internal/model"
)

// Route paths.
const (
	RouteHealth = "/health"
	RouteAPI    = "/api"

	routeKind       = "/{kind}"
	routeKindID     = "/{kind}/{id}"
	routeProductsID = "/products/{id}"
	routeWritersID  = "/writers/{id}"
	routeUsersID    = "/users/{id}"
)

// Routes registers the health checks and the JSON API on r. Callers add the
// session, language, CSRF and rate limiting middleware around it.
func (h *Handler) Routes(r chi.Router) {
	r.Get(RouteHealth, h.Health)
	r.Get(RouteHealth+"/live", h.Liveness)
	r.Get(RouteHealth+"/ready", h.Readiness)

	r.Route(RouteAPI, func(r chi.Router) {
		r.Use(middleware.RequestPath)

		h.publicRoutes(r)
		r.Route("/auth", h.authRoutes)
		r.Group(func(r chi.Router) {
			if h.Login != nil {
				r.Use(h.Login.Middleware())
			}
			r.Post("/setup", h.RunSetup)
		})

		r.Route("/writer", func(r chi.Router) {
			r.Use(middleware.RequireRole(h.Sessions, h.Authorizer, model.RoleWriter))
			h.writerRoutes(r)
		})
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(h.Sessions, h.Authorizer, model.RoleAdmin))
			h.adminRoutes(r)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) { WriteNotFound(w, r) })
	})
}

func (h *Handler) publicRoutes(r chi.Router) {
	for _, kind := range model.ContentKinds {
		base := "/" + kind.Table()
		r.Get(base, h.ListPublicContent(kind))
		r.Get(base+"/{id}", h.GetPublicContent(kind))
		r.Post(base+"/{id}/view", h.CountView(kind))
	}

	r.Get("/writers", h.ListWriters)
	r.Get("/writers/top", h.TopWriters)
	r.Get(routeWritersID, h.GetWriter)

	r.Get("/products", h.ListProducts)
	r.Get(routeProductsID, h.GetProduct)
}

func (h *Handler) authRoutes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Group(func(r chi.Router) {
		if h.Login != nil {
			r.Use(h.Login.Middleware())
		}
		r.Post("/login", h.SignIn)
		r.Post("/password/forgot", h.ForgotPassword)
		r.Post("/password/reset", h.ResetPassword)
	})
	r.Post("/logout", h.SignOut)
	r.Get("/session", h.Session)
	r.Get("/guard", h.Guard)
}

func (h *Handler) writerRoutes(r chi.Router) {
	r.Get("/dashboard", h.WriterDashboard)
	r.Get("/profile", h.GetProfile)
	r.Put("/profile", h.UpdateProfile)

	r.Post("/uploads", h.Upload)
	r.Delete("/uploads", h.DeleteUpload)

	r.Get(routeKind, h.ListOwnContent)
	r.Post(routeKind, h.SubmitContent)
	r.Get(routeKindID, h.GetOwnContent)
	r.Put(routeKindID, h.UpdateContent)
	r.Delete(routeKindID, h.DeleteContent)
	r.Post(routeKindID+"/resubmit", h.ResubmitContent)
}

func (h *Handler) adminRoutes(r chi.Router) {
	r.Get("/dashboard", h.AdminDashboard)

	r.Get("/writers", h.ListWriterProfiles)
	r.Post(routeWritersID+"/approve", h.ApproveWriter)
	r.Post(routeWritersID+"/reject", h.RejectWriter)
	r.Delete(routeWritersID, h.DeleteWriter)

	r.Get("/users", h.ListUsers)
	r.Post(routeUsersID+"/roles", h.GrantRole)
	r.Delete(routeUsersID+"/roles/{role}", h.RevokeRole)
	r.Post(routeUsersID+"/password-reset", h.SendPasswordReset)

	r.Get("/products", h.ListProducts)
	r.Post("/products", h.CreateProduct)
	r.Put(routeProductsID, h.UpdateProduct)
	r.Delete(routeProductsID, h.DeleteProduct)

	r.Post("/uploads", h.Upload)
	r.Delete("/uploads", h.DeleteUpload)
	r.Post("/notifications/welcome", h.SendWelcome)

	r.Get("/events", h.ListEvents)
	r.Get("/jobs", h.ListJobs)
	r.Post("/jobs/{name}/run", h.RunJob)

	r.Get(routeKind, h.ListModeration)
	r.Post(routeKindID+"/approve", h.ApproveContent)
	r.Post(routeKindID+"/reject", h.RejectContent)
	r.Delete(routeKindID, h.DeleteContent)
}
