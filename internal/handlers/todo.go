package handlers

import (
	"errors"
	"net/http"

	dom "Todo/internal/domain"
	"Todo/internal/dto"
	"Todo/internal/repo"
	"Todo/internal/service"

	"github.com/gin-gonic/gin"
)

type TodoHandler struct {
	svc *service.TodoService
}

func NewTodoHandler(svc *service.TodoService) *TodoHandler {
	return &TodoHandler{svc: svc}
}

// Register mounts the todo routes on r. Static segments win over :id.
func (h *TodoHandler) Register(r gin.IRouter) {
	r.GET("", h.List)
	r.POST("", h.Create)
	r.GET("/search", h.Search)
	r.GET("/:id", h.GetByID)
	r.PUT("/:id", h.Update)
	r.DELETE("/:id", h.Delete)
	r.POST("/:id/finish", h.Finish)
}

// List godoc
// @Summary      List all todos
// @Tags         todos
// @Produce      json
// @Success      200  {array}   dto.TodoResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api [get]
func (h *TodoHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, todosToResponses(list))
}

// Create godoc
// @Summary      Create a todo
// @Tags         todos
// @Accept       json
// @Produce      plain
// @Param        body  body      dto.TodoRequest  true  "Todo body"
// @Success      201   {string}  string  "created todo id"
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /api [post]
func (h *TodoHandler) Create(c *gin.Context) {
	var req dto.TodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t, err := h.svc.Create(c.Request.Context(), dom.NewTodo(req.Values()))
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateID) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		serverError(c, err)
		return
	}
	c.String(http.StatusCreated, t.ID)
}

// GetByID godoc
// @Summary      Get a todo by ID
// @Tags         todos
// @Produce      json
// @Param        id   path      string  true  "Todo ID"
// @Success      200  {object}  dto.TodoResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/{id} [get]
func (h *TodoHandler) GetByID(c *gin.Context) {
	t, ok, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		serverError(c, err)
		return
	}
	if !ok {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, todoToResponse(t))
}

// Update godoc
// @Summary      Update a todo
// @Description  Replaces title and description. The id in the path wins over any id in the body.
// @Tags         todos
// @Accept       json
// @Produce      json
// @Param        id    path      string           true  "Todo ID"
// @Param        body  body      dto.TodoRequest  true  "New title and description"
// @Success      200   {object}  dto.TodoResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /api/{id} [put]
func (h *TodoHandler) Update(c *gin.Context) {
	var req dto.TodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	title, desc := req.Values()
	t, err := h.svc.Update(c.Request.Context(), c.Param("id"), dom.Todo{Title: title, Description: desc})
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			notFound(c)
			return
		}
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, todoToResponse(t))
}

// Delete godoc
// @Summary      Delete a todo
// @Tags         todos
// @Param        id   path  string  true  "Todo ID"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/{id} [delete]
func (h *TodoHandler) Delete(c *gin.Context) {
	n, err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		serverError(c, err)
		return
	}
	if n == 0 {
		notFound(c)
		return
	}
	c.Status(http.StatusOK)
}

// Finish godoc
// @Summary      Mark a todo as finished
// @Tags         todos
// @Produce      json
// @Param        id   path      string  true  "Todo ID"
// @Success      200  {object}  dto.TodoResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/{id}/finish [post]
func (h *TodoHandler) Finish(c *gin.Context) {
	t, err := h.svc.Finish(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			notFound(c)
			return
		}
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, todoToResponse(t))
}

// Search godoc
// @Summary      Search todos by keyword
// @Tags         todos
// @Produce      json
// @Param        keyword  query     string  true  "Substring of title or description"
// @Success      200      {array}   dto.TodoResponse
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      500      {object}  dto.ErrorResponse
// @Router       /api/search [get]
func (h *TodoHandler) Search(c *gin.Context) {
	q := c.Query("keyword")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keyword is required"})
		return
	}
	list, err := h.svc.Search(c.Request.Context(), q)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, todosToResponses(list))
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

// serverError hands err to the request logger; the client only sees a generic body.
func serverError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func todoToResponse(t dom.Todo) dto.TodoResponse {
	return dto.TodoResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		FinishedAt:  t.FinishedAt,
	}
}

func todosToResponses(list []dom.Todo) []dto.TodoResponse {
	out := make([]dto.TodoResponse, len(list))
	for i := range list {
		out[i] = todoToResponse(list[i])
	}
	return out
}
