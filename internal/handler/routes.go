package handler

import "github.com/gin-gonic/gin"

// Handlers groups the HTTP handlers mounted under the API prefix.
type Handlers struct {
	Timetable      *TimetableHandler
	CourseSchedule *CourseScheduleHandler
}

// RegisterRoutes mounts the timetable and course schedule endpoints on api.
func RegisterRoutes(api *gin.RouterGroup, h Handlers) {
	timetables := api.Group("/timetables")
	timetables.GET("", h.Timetable.List)
	timetables.POST("/solve", h.Timetable.Solve)
	timetables.POST("/jobs", h.Timetable.SubmitJob)
	timetables.GET("/jobs/:id", h.Timetable.JobStatus)
	timetables.GET("/:id", h.Timetable.Get)
	timetables.POST("/:id/accept", h.Timetable.Accept)
	timetables.GET("/:id/courses/:courseId/grid", h.Timetable.Grid)

	courses := api.Group("/courses")
	courses.GET("/:id/schedule", h.CourseSchedule.Schedule)
	courses.GET("/:id/schedule/export", h.CourseSchedule.Export)
}
