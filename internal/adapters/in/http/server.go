package http

import (
	"errors"
	"net/http"
	"time"

	"allocation/internal/core/application/messagebus"
	"allocation/internal/core/application/messages"
	"allocation/internal/core/application/usecases/queries"
	"allocation/internal/core/domain/model/product"
	"allocation/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// Server exposes the allocation service over HTTP. Commands are dispatched
// through the message bus; reads go straight to the allocations query
// handler.
type Server struct {
	bus                   *messagebus.MessageBus
	getAllocationsHandler queries.GetAllocationsQueryHandler
}

// NewServer creates an HTTP server over the message bus and query handler.
func NewServer(bus *messagebus.MessageBus, getAllocationsHandler queries.GetAllocationsQueryHandler) *Server {
	return &Server{
		bus:                   bus,
		getAllocationsHandler: getAllocationsHandler,
	}
}

// RegisterRoutes attaches the server's routes to an echo instance.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/v1/batches", s.CreateBatch)
	e.POST("/api/v1/allocate", s.Allocate)
	e.GET("/api/v1/allocations/:order_id", s.GetAllocations)
	e.GET("/health", s.Health)
}

// Error is the JSON error body returned by all endpoints.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewBatchRequest is the body of POST /api/v1/batches.
type NewBatchRequest struct {
	Ref string     `json:"ref"`
	SKU string     `json:"sku"`
	Qty int        `json:"qty"`
	ETA *time.Time `json:"eta,omitempty"`
}

// AllocateRequest is the body of POST /api/v1/allocate.
type AllocateRequest struct {
	OrderID string `json:"order_id"`
	SKU     string `json:"sku"`
	Qty     int    `json:"qty"`
}

// AllocateResponse reports which batch the order line landed in.
type AllocateResponse struct {
	BatchRef string `json:"batchref"`
}

// CreateBatch handles POST /api/v1/batches - adds a batch of stock.
func (s *Server) CreateBatch(ctx echo.Context) error {
	var req NewBatchRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	cmd, err := messages.NewCreateBatch(req.Ref, req.SKU, req.Qty, req.ETA)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid batch data: " + err.Error(),
		})
	}

	if handleErr := s.bus.Handle(ctx.Request().Context(), cmd); handleErr != nil {
		if errors.Is(handleErr, product.ErrDuplicateBatchRef) {
			return ctx.JSON(http.StatusConflict, Error{
				Code:    http.StatusConflict,
				Message: "Batch " + req.Ref + " already exists",
			})
		}
		return ctx.JSON(http.StatusInternalServerError, Error{
			Code:    http.StatusInternalServerError,
			Message: "Failed to create batch",
		})
	}

	return ctx.NoContent(http.StatusCreated)
}

// Allocate handles POST /api/v1/allocate - allocates an order line and
// reports the chosen batch.
func (s *Server) Allocate(ctx echo.Context) error {
	var req AllocateRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	cmd, err := messages.NewAllocate(req.OrderID, req.SKU, req.Qty)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid order line: " + err.Error(),
		})
	}

	if handleErr := s.bus.Handle(ctx.Request().Context(), cmd); handleErr != nil {
		if errors.Is(handleErr, product.ErrOutOfStock) || errors.Is(handleErr, errs.ErrObjectNotFound) {
			return ctx.JSON(http.StatusBadRequest, Error{
				Code:    http.StatusBadRequest,
				Message: handleErr.Error(),
			})
		}
		return ctx.JSON(http.StatusInternalServerError, Error{
			Code:    http.StatusInternalServerError,
			Message: "Failed to allocate order line",
		})
	}

	batchRef, err := s.allocatedBatch(ctx, req.OrderID, req.SKU)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, Error{
			Code:    http.StatusInternalServerError,
			Message: "Failed to read allocation result",
		})
	}

	return ctx.JSON(http.StatusAccepted, AllocateResponse{BatchRef: batchRef})
}

// GetAllocations handles GET /api/v1/allocations/:order_id - lists which
// batches an order's lines are allocated to.
func (s *Server) GetAllocations(ctx echo.Context) error {
	query, err := queries.NewGetAllocationsQuery(ctx.Param("order_id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid order id",
		})
	}

	allocations, err := s.getAllocationsHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, Error{
			Code:    http.StatusInternalServerError,
			Message: "Failed to retrieve allocations",
		})
	}

	if len(allocations) == 0 {
		return ctx.JSON(http.StatusNotFound, Error{
			Code:    http.StatusNotFound,
			Message: "No allocations for order",
		})
	}

	return ctx.JSON(http.StatusOK, allocations)
}

// Health handles GET /health.
func (s *Server) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// allocatedBatch reads the batch reference the line just landed in from the
// read model, which the bus updated before Handle returned.
func (s *Server) allocatedBatch(ctx echo.Context, orderID, sku string) (string, error) {
	query, err := queries.NewGetAllocationsQuery(orderID)
	if err != nil {
		return "", err
	}

	allocations, err := s.getAllocationsHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return "", err
	}

	for _, a := range allocations {
		if a.SKU == sku {
			return a.BatchRef, nil
		}
	}
	return "", errors.New("allocation not visible in read model")
}
