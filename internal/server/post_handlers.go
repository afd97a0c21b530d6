package server

import (
	"io"
	"log/slog"

	"minisocial/internal/middleware"

	"minisocial/internal/models"
	"minisocial/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Description Accepts JSON, or multipart/form-data with an optional "media" file that is uploaded first.
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Param request body object{content_text=string,media_url=string} false "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	var req struct {
		ContentText string `json:"content_text" form:"content_text"`
		MediaURL    string `json:"media_url" form:"media_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	uploaded := ""
	if file, err := c.FormFile("media"); err == nil {
		url, err := s.uploadFormFile(c, userID, file.Filename, file.Header.Get("Content-Type"), func() (io.ReadCloser, error) {
			return file.Open()
		})
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		req.MediaURL, uploaded = url, url
	}

	post, err := s.postService.CreatePost(ctx, service.CreatePostInput{
		UserID:      userID,
		ContentText: req.ContentText,
		MediaURL:    req.MediaURL,
	})
	if err != nil {
		// the post never references the upload
		if uploaded != "" {
			if derr := s.mediaService.Discard(ctx, uploaded); derr != nil {
				middleware.Logger.WarnContext(ctx, "failed to discard orphaned upload",
					slog.String("media_url", uploaded), slog.String("error", derr.Error()))
			}
		}
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/posts/:postId
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param postId path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{postId} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetPost(c.UserContext(), postID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}

// GetFeed handles GET /api/posts/feed
// @Summary The caller's feed
// @Description Posts by the caller and everyone they follow, newest first.
// @Tags posts
// @Produce json
// @Param limit query int false "Page size (0 = all, max 100)"
// @Param before query int false "Return posts older than this post id"
// @Success 200 {array} models.FeedPost
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/feed [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	limit, ok := queryUint(c, "limit")
	if !ok {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid limit"))
	}
	before, ok := queryUint(c, "before")
	if !ok {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid before"))
	}

	feed, err := s.feedService.ComposeFeed(c.UserContext(), service.FeedQuery{
		UserID:   currentUserID(c),
		Limit:    int(limit),
		BeforeID: before,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(feed)
}

// ToggleLike handles POST /api/posts/:postId/like
// @Summary Like or unlike a post
// @Tags posts
// @Produce json
// @Param postId path int true "Post ID"
// @Success 200 {object} models.LikeResult
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{postId}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}
	res, err := s.postService.ToggleLike(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(res)
}

// AddComment handles POST /api/posts/:postId/comment
// @Summary Comment on a post
// @Description Returns the post's full comment list after the append.
// @Tags posts
// @Accept json
// @Produce json
// @Param postId path int true "Post ID"
// @Param request body object{comment_text=string} true "Comment"
// @Success 201 {array} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{postId}/comment [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}
	var req struct {
		CommentText string `json:"comment_text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comments, err := s.commentService.AddComment(c.UserContext(), service.AddCommentInput{
		UserID: currentUserID(c),
		PostID: postID,
		Text:   req.CommentText,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comments)
}
