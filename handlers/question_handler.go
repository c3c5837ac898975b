package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reardonm/trivia/services"
)

type QuestionHandler struct {
	questionService *services.QuestionService
}

func NewQuestionHandler(questionService *services.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

func (h *QuestionHandler) Categories(c *gin.Context) {
	categories, err := h.questionService.ListCategories(c.Request.Context())
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}
