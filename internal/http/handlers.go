package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/issuetracker/internal/issue"
)

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleProjects(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.Projects(c.Request().Context()))
}

// handleList returns the project's issues filtered by query parameters.
func (s *Server) handleList(c echo.Context) error {
	ctx, span := s.startSpan(c, "issue.list")
	defer span.End()

	filters := issue.Filters{}
	for key, values := range c.QueryParams() {
		if len(values) == 0 {
			continue
		}
		filters[key] = filterValue(key, values[0])
	}
	span.SetAttributes(attribute.Int("filters", len(filters)))

	return c.JSON(http.StatusOK, s.store.List(ctx, c.Param("project"), filters))
}

// filterValue converts query strings to the stored value type. Only open is
// typed; an unparseable open value stays a string and matches nothing.
func filterValue(key, raw string) any {
	if key == issue.FieldOpen {
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}
	return raw
}

func (s *Server) handleCreate(c echo.Context) error {
	ctx, span := s.startSpan(c, "issue.create")
	defer span.End()

	body, _, err := readBody(c)
	if err != nil {
		return s.invalidBody(c, span, err)
	}

	created, err := s.store.Create(ctx, c.Param("project"), issue.NewIssue{
		Title:      text(body, issue.FieldTitle),
		Text:       text(body, issue.FieldText),
		CreatedBy:  text(body, issue.FieldCreatedBy),
		AssignedTo: text(body, issue.FieldAssignedTo),
		StatusText: text(body, issue.FieldStatusText),
	})
	if err != nil {
		return s.writeError(c, span, err)
	}

	span.SetAttributes(attribute.String("issue.id", created.ID))
	return c.JSON(http.StatusOK, created)
}

func (s *Server) handleUpdate(c echo.Context) error {
	ctx, span := s.startSpan(c, "issue.update")
	defer span.End()

	body, form, err := readBody(c)
	if err != nil {
		return s.invalidBody(c, span, err)
	}

	id := text(body, issue.FieldID)
	span.SetAttributes(attribute.String("issue.id", id))

	res, err := s.store.Update(ctx, c.Param("project"), id, updateFields(body, form))
	if err != nil {
		return s.writeError(c, span, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleDelete(c echo.Context) error {
	ctx, span := s.startSpan(c, "issue.delete")
	defer span.End()

	body, _, err := readBody(c)
	if err != nil {
		return s.invalidBody(c, span, err)
	}

	id := text(body, issue.FieldID)
	if id == "" {
		id = c.QueryParam(issue.FieldID)
	}
	span.SetAttributes(attribute.String("issue.id", id))

	res, err := s.store.Delete(ctx, c.Param("project"), id)
	if err != nil {
		return s.writeError(c, span, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) startSpan(c echo.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(c.Request().Context(), name,
		trace.WithAttributes(attribute.String("project", c.Param("project"))))
}

// writeError reports store errors in the payload with status 200. Anything
// that is not an issue error is an internal fault and gets a 500.
func (s *Server) writeError(c echo.Context, span trace.Span, err error) error {
	ctx := c.Request().Context()

	var ie *issue.Error
	if errors.As(err, &ie) {
		span.SetAttributes(attribute.String("outcome", issue.Kind(err)))
		s.logger.Debug(ctx, "issue operation rejected",
			zap.String("kind", issue.Kind(err)),
			zap.String("error", ie.Message),
			zap.String("issue.id", ie.ID),
		)
		return c.JSON(http.StatusOK, ErrorResponse{Error: ie.Message, ID: ie.ID})
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.Error(ctx, "issue operation failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgInternal})
}

func (s *Server) invalidBody(c echo.Context, span trace.Span, err error) error {
	span.SetAttributes(attribute.String("outcome", "invalid_body"))
	s.logger.Debug(c.Request().Context(), "invalid request body", zap.Error(err))
	return c.JSON(http.StatusOK, ErrorResponse{Error: msgInvalidBody})
}
