package httputil

import "github.com/gin-gonic/gin"

// TraceIDKey はgin.Contextに保存するトレースIDのキー。
const TraceIDKey = "trace_id"

// WriteError はProblemDetailをGinレスポンスとして書き込む。
func WriteError(c *gin.Context, problem *ProblemDetail) {
	fill(c, problem)
	c.Header("Content-Type", ContentType)
	c.JSON(problem.Status, problem)
}

// AbortWithError はProblemDetailをGinレスポンスとして書き込み、リクエスト処理を中断する。
func AbortWithError(c *gin.Context, problem *ProblemDetail) {
	fill(c, problem)
	c.Header("Content-Type", ContentType)
	c.AbortWithStatusJSON(problem.Status, problem)
}

func fill(c *gin.Context, problem *ProblemDetail) {
	if problem.TraceID == "" {
		problem.TraceID = c.GetString(TraceIDKey)
	}
}
