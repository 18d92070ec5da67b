package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"freight/internal/core/application/usecases/commands"
	"freight/internal/core/application/usecases/queries"
	"freight/internal/core/domain/model/kernel"
	"freight/internal/core/domain/model/shipment"

	"github.com/labstack/echo/v4"
)

const (
	headerCompanyID = "X-Company-ID"
	headerUserID    = "X-User-ID"
)

type (
	ShipmentIDAllocator interface {
		Handle(ctx context.Context, cmd commands.AllocateShipmentIDCommand) (kernel.ShipmentID, error)
	}
	DraftSaver interface {
		Handle(ctx context.Context, cmd commands.SaveDraftCommand) (*shipment.Shipment, error)
	}
	ShipmentBooker interface {
		Handle(ctx context.Context, cmd commands.BookShipmentCommand) (commands.BookShipmentResult, error)
	}
	DocumentRetrier interface {
		Handle(ctx context.Context, cmd commands.RetryDocumentsCommand) (*shipment.Shipment, error)
	}
	ShipmentFinder interface {
		Handle(ctx context.Context, query queries.GetShipmentQuery) (*shipment.Shipment, error)
	}
	DraftLister interface {
		Handle(ctx context.Context, query queries.ListDraftsQuery) ([]*shipment.Shipment, error)
	}
	ContentValidator interface {
		ValidateForBooking(c shipment.Content) error
	}
)

// Handlers are the use cases served over HTTP.
type Handlers struct {
	Allocate   ShipmentIDAllocator
	SaveDraft  DraftSaver
	Book       ShipmentBooker
	Retry      DocumentRetrier
	Get        ShipmentFinder
	ListDrafts DraftLister
	Validator  ContentValidator
}

// Server maps API requests onto the lifecycle use cases.
type Server struct {
	h      Handlers
	logger *slog.Logger
}

func NewServer(h Handlers, logger *slog.Logger) *Server {
	return &Server{h: h, logger: logger.With("component", "HTTPServer")}
}

// Register mounts the API routes on g.
func (s *Server) Register(g *echo.Group) {
	g.POST("/shipment-ids", s.AllocateShipmentID)
	g.GET("/drafts", s.ListDrafts)
	g.POST("/drafts", s.SaveDraft)
	g.POST("/bookings", s.BookShipment)
	g.POST("/validations", s.ValidateContent)
	g.POST("/conversions", s.ConvertPackages)
	g.GET("/shipments/:shipmentId", s.GetShipment)
	g.POST("/shipments/:shipmentId/documents/retry", s.RetryDocuments)
}

// AllocateShipmentID handles POST /api/v1/shipment-ids.
func (s *Server) AllocateShipmentID(c echo.Context) error {
	cmd, err := commands.NewAllocateShipmentIDCommand(c.Request().Header.Get(headerCompanyID))
	if err != nil {
		return s.fail(c, err, "")
	}
	id, err := s.h.Allocate.Handle(c.Request().Context(), cmd)
	if err != nil {
		return s.fail(c, err, "")
	}
	return c.JSON(http.StatusCreated, map[string]string{"shipmentId": id.String()})
}

// ListDrafts handles GET /api/v1/drafts.
func (s *Server) ListDrafts(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Kind: kindBadRequest, Message: "limit must be an integer"})
		}
		limit = n
	}
	query, err := queries.NewListDraftsQuery(c.Request().Header.Get(headerCompanyID), limit)
	if err != nil {
		return s.fail(c, err, "")
	}
	drafts, err := s.h.ListDrafts.Handle(c.Request().Context(), query)
	if err != nil {
		return s.fail(c, err, "")
	}

	response := draftListResponse{Drafts: make([]*shipmentView, len(drafts))}
	for i, d := range drafts {
		response.Drafts[i] = toView(d)
	}
	return c.JSON(http.StatusOK, response)
}

// SaveDraft handles POST /api/v1/drafts.
func (s *Server) SaveDraft(c echo.Context) error {
	var req shipmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Kind: kindBadRequest, Message: "invalid request body"})
	}
	key, id, editor, err := req.parse()
	if err != nil {
		return s.fail(c, err, "")
	}
	cmd, err := commands.NewSaveDraftCommand(
		c.Request().Header.Get(headerCompanyID),
		c.Request().Header.Get(headerUserID),
		editor, key, id, req.Content,
	)
	if err != nil {
		return s.fail(c, err, "")
	}

	saved, err := s.h.SaveDraft.Handle(c.Request().Context(), cmd)
	if err != nil {
		return s.fail(c, err, "")
	}
	return c.JSON(http.StatusOK, draftResponse{
		Shipment: toView(saved),
		State:    saved.LifecycleState().String(),
	})
}

// BookShipment handles POST /api/v1/bookings.
func (s *Server) BookShipment(c echo.Context) error {
	var req shipmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Kind: kindBadRequest, Message: "invalid request body"})
	}
	key, id, editor, err := req.parse()
	if err != nil {
		return s.fail(c, err, "")
	}
	cmd, err := commands.NewBookShipmentCommand(
		c.Request().Header.Get(headerCompanyID),
		c.Request().Header.Get(headerUserID),
		editor, key, id, req.Content,
	)
	if err != nil {
		return s.fail(c, err, "")
	}

	result, err := s.h.Book.Handle(c.Request().Context(), cmd)
	if err != nil {
		return s.fail(c, err, result.State.String())
	}
	return c.JSON(http.StatusOK, bookingResponse{
		Shipment:      toView(result.Shipment),
		State:         result.State.String(),
		AlreadyBooked: result.AlreadyBooked,
		Summary:       result.Summary,
	})
}

// ValidateContent handles POST /api/v1/validations. It answers whether the
// content could be booked as-is without touching any record.
func (s *Server) ValidateContent(c echo.Context) error {
	var req validationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Kind: kindBadRequest, Message: "invalid request body"})
	}
	if err := s.h.Validator.ValidateForBooking(req.Content); err != nil {
		return s.fail(c, err, "")
	}
	return c.NoContent(http.StatusOK)
}

// ConvertPackages handles POST /api/v1/conversions. Without a package index
// every package is converted and the shipment default switches too.
func (s *Server) ConvertPackages(c echo.Context) error {
	var req conversionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Kind: kindBadRequest, Message: "invalid request body"})
	}

	content := req.Content.Clone()
	var err error
	if req.PackageIndex != nil {
		err = content.ConvertPackage(*req.PackageIndex, req.UnitSystem)
	} else {
		err = content.ConvertAllPackages(req.UnitSystem)
	}
	if err != nil {
		return s.fail(c, err, "")
	}
	return c.JSON(http.StatusOK, conversionResponse{Content: content, Totals: shipment.ComputeTotals(content)})
}

// GetShipment handles GET /api/v1/shipments/{shipmentId}.
func (s *Server) GetShipment(c echo.Context) error {
	found, err := s.find(c)
	if err != nil {
		return s.fail(c, err, "")
	}
	return c.JSON(http.StatusOK, toView(found))
}

// RetryDocuments handles POST /api/v1/shipments/{shipmentId}/documents/retry.
func (s *Server) RetryDocuments(c echo.Context) error {
	found, err := s.find(c)
	if err != nil {
		return s.fail(c, err, "")
	}
	cmd, err := commands.NewRetryDocumentsCommand(found.Key())
	if err != nil {
		return s.fail(c, err, "")
	}
	updated, err := s.h.Retry.Handle(c.Request().Context(), cmd)
	if err != nil {
		return s.fail(c, err, "")
	}
	return c.JSON(http.StatusOK, toView(updated))
}

// find resolves the path shipment id within the caller's company.
func (s *Server) find(c echo.Context) (*shipment.Shipment, error) {
	query, err := queries.NewGetShipmentQuery(c.Request().Header.Get(headerCompanyID), c.Param("shipmentId"))
	if err != nil {
		return nil, err
	}
	return s.h.Get.Handle(c.Request().Context(), query)
}

func (s *Server) fail(c echo.Context, err error, state string) error {
	status, body := statusFor(err)
	body.State = state
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", c.Request().Method, "path", c.Path(), "status", status, "error", err)
	}
	return c.JSON(status, body)
}
