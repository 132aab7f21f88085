// Package posts implements the travel blog post endpoints: CRUD with ownership
// checks, paginated listing, case-insensitive search by country or author, and
// country metadata enrichment on reads.
//
// Country validation is mandatory on create and on updates that change the
// country: an unresolvable name fails the request. Enrichment on read is the
// opposite: a failed lookup degrades to null country fields so a post is never
// unreadable because the upstream is down.
package posts

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/travelog/travelog/internal/api/respond"
	"github.com/travelog/travelog/internal/countries"
	"github.com/travelog/travelog/internal/db/models"
	"github.com/travelog/travelog/internal/db/repositories"
	"github.com/travelog/travelog/internal/middleware"
)

const dateLayout = "2006-01-02"

type postRequest struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	CountryName string `json:"country_name"`
	DateOfVisit string `json:"date_of_visit"`
}

// validateCountry resolves a country name through the lookup service. An empty
// result or 404 means the name is bogus; any other failure means the upstream
// is down, which blocks creation (validation is mandatory there).
func validateCountry(c *gin.Context, svc countries.Service, name string) bool {
	found, err := svc.GetByName(c.Request.Context(), name)
	if errors.Is(err, countries.ErrNotFound) || (err == nil && len(found) == 0) {
		respond.Fail(c, http.StatusBadRequest, respond.KindInvalidCountry, "Unknown country: "+name)
		return false
	}
	if err != nil {
		respond.Fail(c, http.StatusBadGateway, respond.KindUpstream, "Could not validate country, try again later")
		return false
	}
	return true
}

// enrich attaches country details to a batch of posts
func enrich(c *gin.Context, svc countries.Service, posts []*models.BlogPost) []models.EnrichedPost {
	enriched := make([]models.EnrichedPost, 0, len(posts))
	for _, p := range posts {
		enriched = append(enriched, models.EnrichedPost{
			BlogPost: *p,
			Country:  countries.Enrich(c.Request.Context(), svc, p.CountryName),
		})
	}
	return enriched
}

// @Summary      Create post
// @Tags         Posts
// @Accept       json
// @Produce      json
// @Param        body  body  postRequest  true  "Post payload"
// @Success      201  {object}  map[string]interface{}  "data: the created post"
// @Failure      400  {object}  map[string]interface{}  "ValidationError or InvalidCountry"
// @Router       /api/posts [post]
// CreateHandler handles POST /api/posts
func CreateHandler(db *sql.DB, svc countries.Service) gin.HandlerFunc {
	postRepo := repositories.NewPostRepository(db)

	return func(c *gin.Context) {
		var req postRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Fail(c, http.StatusBadRequest, respond.KindValidation, "Invalid request body")
			return
		}
		if req.Title == "" || req.Content == "" || req.CountryName == "" || req.DateOfVisit == "" {
			respond.Fail(c, http.StatusBadRequest, respond.KindValidation, "title, content, country_name, and date_of_visit are required")
			return
		}

		visited, err := time.Parse(dateLayout, req.DateOfVisit)
		if err != nil {
			respond.Fail(c, http.StatusBadRequest, respond.KindValidation, "date_of_visit must be YYYY-MM-DD")
			return
		}

		if !validateCountry(c, svc, req.CountryName) {
			return
		}

		post := &models.BlogPost{
			Title:       req.Title,
			Content:     req.Content,
			CountryName: req.CountryName,
			DateOfVisit: visited,
			UserID:      c.GetString(middleware.UserIDKey),
		}
		if err := postRepo.CreatePost(c.Request.Context(), post); err != nil {
			respond.Internal(c, "Failed to create post")
			return
		}

		respond.OK(c, http.StatusCreated, "Post created", post)
	}
}

// @Summary      List posts
// @Tags         Posts
// @Produce      json
// @Param        page   query  int  false  "Page (default 1)"
// @Param        limit  query  int  false  "Page size (default 10, max 100)"
// @Success      200  {object}  map[string]interface{}  "data: [posts], pagination"
// @Router       /api/posts [get]
// ListHandler handles GET /api/posts
func ListHandler(db *sql.DB, svc countries.Service) gin.HandlerFunc {
	postRepo := repositories.NewPostRepository(db)

	return func(c *gin.Context) {
		listFiltered(c, postRepo, svc, repositories.PostFilter{})
	}
}

// @Summary      Search posts by country
// @Tags         Posts
// @Produce      json
// @Param        country  query  string  true  "Country substring (case-insensitive)"
// @Success      200  {object}  map[string]interface{}  "data: [posts], pagination"
// @Router       /api/posts/search/country [get]
// SearchByCountryHandler handles GET /api/posts/search/country
func SearchByCountryHandler(db *sql.DB, svc countries.Service) gin.HandlerFunc {
	postRepo := repositories.NewPostRepository(db)

	return func(c *gin.Context) {
		term := c.Query("country")
		if term == "" {
			respond.Fail(c, http.StatusBadRequest, respond.KindValidation, "country query parameter is required")
			return
		}
		listFiltered(c, postRepo, svc, repositories.PostFilter{Country: term})
	}
}

// @Summary      Search posts by author username
// @Tags         Posts
// @Produce      json
// @Param        username  query  string  true  "Username substring (case-insensitive)"
// @Success      200  {object}  map[string]interface{}  "data: [posts], pagination"
// @Router       /api/posts/search/username [get]
// SearchByUsernameHandler handles GET /api/posts/search/username
func SearchByUsernameHandler(db *sql.DB, svc countries.Service) gin.HandlerFunc {
	postRepo := repositories.NewPostRepository(db)

	return func(c *gin.Context) {
		term := c.Query("username")
		if term == "" {
			respond.Fail(c, http.StatusBadRequest, respond.KindValidation, "username query parameter is required")
			return
		}
		listFiltered(c, postRepo, svc, repositories.PostFilter{Username: term})
	}
}

// listFiltered runs the shared list + count + enrich + paginate pipeline.
// An empty result is a normal 200 with an empty data array, never an error.
func listFiltered(c *gin.Context, postRepo *repositories.PostRepository, svc countries.Service, filter repositories.PostFilter) {
	page, limit, offset := respond.ParsePagination(c)

	found, err := postRepo.ListPosts(c.Request.Context(), filter, limit, offset)
	if err != nil {
		respond.Internal(c, "Failed to list posts")
		return
	}
	total, err := postRepo.CountPosts(c.Request.Context(), filter)
	if err != nil {
		respond.Internal(c, "Failed to count posts")
		return
	}

	respond.OKPaginated(c, "Posts retrieved", enrich(c, svc, found), respond.NewPagination(page, limit, total))
}

// @Summary      Get post
// @Tags         Posts
// @Produce      json
// @Param        id  path  string  true  "Post ID"
// @Success      200  {object}  map[string]interface{}  "data: the post with country details"
// @Failure      404  {object}  map[string]interface{}  "NotFound"
// @Router       /api/posts/{id} [get]
// GetHandler handles GET /api/posts/:id
func GetHandler(db *sql.DB, svc countries.Service) gin.HandlerFunc {
	postRepo := repositories.NewPostRepository(db)

	return func(c *gin.Context) {
		post, err := postRepo.GetPostByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			respond.Internal(c, "Failed to load post")
			return
		}
		if post == nil {
			respond.Fail(c, http.StatusNotFound, respond.KindNotFound, "No post with that id")
			return
		}

		respond.OK(c, http.StatusOK, "Post retrieved", models.EnrichedPost{
			BlogPost: *post,
			Country:  countries.Enrich(c.Request.Context(), svc, post.CountryName),
		})
	}
}

// @Summary      Update post
// @Description  Applies a partial patch to a post owned by the caller. A changed country is re-validated.
// @Tags         Posts
// @Accept       json
// @Produce      json
// @Param        id    path  string       true  "Post ID"
// @Param        body  body  postRequest  true  "Fields to update (all optional)"
// @Success      200  {object}  map[string]interface{}  "data: the updated post"
// @Failure      403  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "NotFound"
// @Router       /api/posts/{id} [put]
// UpdateHandler handles PUT /api/posts/:id
func UpdateHandler(db *sql.DB, svc countries.Service) gin.HandlerFunc {
	postRepo := repositories.NewPostRepository(db)

	return func(c *gin.Context) {
		var req postRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Fail(c, http.StatusBadRequest, respond.KindValidation, "Invalid request body")
			return
		}

		// Existence first, then ownership: a non-owner on a real post gets 403,
		// anyone on a missing post gets 404.
		post, err := postRepo.GetPostByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			respond.Internal(c, "Failed to load post")
			return
		}
		if post == nil {
			respond.Fail(c, http.StatusNotFound, respond.KindNotFound, "No post with that id")
			return
		}
		if post.UserID != c.GetString(middleware.UserIDKey) {
			respond.Fail(c, http.StatusForbidden, respond.KindUnauthorized, "Only the author can update a post")
			return
		}

		// Partial patch: only supplied fields change
		if req.Title != "" {
			post.Title = req.Title
		}
		if req.Content != "" {
			post.Content = req.Content
		}
		if req.CountryName != "" && req.CountryName != post.CountryName {
			if !validateCountry(c, svc, req.CountryName) {
				return
			}
			post.CountryName = req.CountryName
		}
		if req.DateOfVisit != "" {
			visited, err := time.Parse(dateLayout, req.DateOfVisit)
			if err != nil {
				respond.Fail(c, http.StatusBadRequest, respond.KindValidation, "date_of_visit must be YYYY-MM-DD")
				return
			}
			post.DateOfVisit = visited
		}

		if _, err := postRepo.UpdatePost(c.Request.Context(), post); err != nil {
			respond.Internal(c, "Failed to update post")
			return
		}

		respond.OK(c, http.StatusOK, "Post updated", post)
	}
}

// @Summary      Delete post
// @Tags         Posts
// @Produce      json
// @Param        id  path  string  true  "Post ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "NotFound"
// @Router       /api/posts/{id} [delete]
// DeleteHandler handles DELETE /api/posts/:id
func DeleteHandler(db *sql.DB) gin.HandlerFunc {
	postRepo := repositories.NewPostRepository(db)

	return func(c *gin.Context) {
		post, err := postRepo.GetPostByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			respond.Internal(c, "Failed to load post")
			return
		}
		if post == nil {
			respond.Fail(c, http.StatusNotFound, respond.KindNotFound, "No post with that id")
			return
		}
		callerID := c.GetString(middleware.UserIDKey)
		if post.UserID != callerID {
			respond.Fail(c, http.StatusForbidden, respond.KindUnauthorized, "Only the author can delete a post")
			return
		}

		if _, err := postRepo.DeletePost(c.Request.Context(), post.ID, callerID); err != nil {
			respond.Internal(c, "Failed to delete post")
			return
		}

		respond.OK(c, http.StatusOK, "Post deleted", nil)
	}
}
