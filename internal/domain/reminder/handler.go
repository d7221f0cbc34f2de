package reminder

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/addReminder", h.CreateReminder)
	api.GET("/reminders", h.ListReminders)
	api.GET("/reminders/:username", h.ListUserReminders)
	api.PATCH("/reminders/:id", h.MarkCompleted)
	api.DELETE("/reminders/:id", h.DeleteReminder)
	api.GET("/api/remind/:username", h.RemindersEnvelope)
}

// dayList accepts either a JSON string or an array of strings, matching
// the historical patch wire format.
type dayList []string

func (d *dayList) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = dayList{s}
		return nil
	}
	var arr []string
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}
	*d = dayList(arr)
	return nil
}

type createReminderRequest struct {
	Username    string     `json:"username"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Days        []string   `json:"days"`
	Times       []TimeSlot `json:"times"`
	TotalDoses  int        `json:"totalDoses"`
}

func (h *Handler) CreateReminder(c echo.Context) error {
	var req createReminderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	rem := &Reminder{
		Owner:       req.Username,
		Name:        req.Name,
		Description: req.Description,
		Days:        req.Days,
		Times:       req.Times,
		TotalDoses:  req.TotalDoses,
	}
	if err := h.svc.Create(c.Request().Context(), rem); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":    "Reminder added successfully",
		"reminderId": rem.ID,
	})
}

func (h *Handler) ListReminders(c echo.Context) error {
	reminders, err := h.svc.ListAll(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, reminders)
}

func (h *Handler) ListUserReminders(c echo.Context) error {
	reminders, err := h.svc.ListByOwner(c.Request().Context(), c.Param("username"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, reminders)
}

type markCompletedRequest struct {
	Time string  `json:"time"`
	Days dayList `json:"days"`
}

func (h *Handler) MarkCompleted(c echo.Context) error {
	var req markCompletedRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	rem, res, err := h.svc.MarkCompleted(c.Request().Context(), c.Param("id"), req.Time, req.Days)
	if err != nil {
		return httpError(err)
	}

	day := req.Days[0]
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":                 fmt.Sprintf("Reminder marked as completed for the day (%s).", day),
		"reminder":                rem,
		"modified":                res.Modified,
		"allTimesCompletedForDay": res.AllSlotsCompleted,
	})
}

func (h *Handler) DeleteReminder(c echo.Context) error {
	err := h.svc.Delete(c.Request().Context(), c.Param("id"), c.QueryParam("username"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Reminder deleted successfully",
	})
}

// RemindersEnvelope serves the device agent's polling endpoint.
func (h *Handler) RemindersEnvelope(c echo.Context) error {
	reminders, err := h.svc.ListByOwner(c.Request().Context(), c.Param("username"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":   true,
		"reminders": reminders,
	})
}

func httpError(err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Reminder not found")
	case errors.Is(err, ErrSlotNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Time not found")
	case errors.Is(err, ErrNotModified):
		return echo.NewHTTPError(http.StatusNotFound, "Failed to update reminder. No modification occurred.")
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this reminder")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
}
