package api

import (
	"errors"
	"net/http"

	"salon-booking/internal/domain/booking"
	reqdto "salon-booking/internal/handler/dto/request"
	resdto "salon-booking/internal/handler/dto/response"
	"salon-booking/internal/handler/httperr"
	"salon-booking/internal/handler/middleware"
	"salon-booking/internal/pkg/errs"
	"salon-booking/internal/usecase/commands"
	"salon-booking/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const idempotencyHeader = "Idempotency-Key"

var errMissingIdentity = errors.New("missing authenticated identity")

type BookingHandler struct {
	cmds commands.BookingCommands
	q    queries.BookingQueries
}

func NewBookingHandler(cmds commands.BookingCommands, q queries.BookingQueries) *BookingHandler {
	return &BookingHandler{cmds: cmds, q: q}
}

// @Summary Create booking
// @Description Book one or more services at a shop; the barber is auto-assigned when omitted
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Replays the first successful response for a retried request"
// @Param request body reqdto.CreateBookingRequest true "Create booking request"
// @Success 201 {object} resdto.BookingResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /api/bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	actor, tenantID, ok := identity(c)
	if !ok {
		return
	}

	key, err := idempotencyKey(c)
	if err != nil {
		httperr.AbortWithCode(c, http.StatusBadRequest, err, string(commands.CodeValidation), "Invalid Idempotency-Key header", nil)
		return
	}

	var req reqdto.CreateBookingRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		httperr.AbortWithCode(c, http.StatusBadRequest, bindErr, string(commands.CodeValidation), "Invalid request", nil)
		return
	}

	created, err := h.cmds.CreateBooking(c.Request.Context(), commands.CreateBookingInput{
		TenantID:           tenantID,
		CustomerID:         actor.ID,
		ShopID:             req.ShopID,
		BarberID:           req.BarberID,
		BookingDate:        req.BookingDate,
		StartTime:          req.StartTime,
		ServiceIDs:         req.ServiceIDs,
		Notes:              req.Notes,
		ExpectedTotalPrice: req.TotalPrice,
		PricingContext:     req.PricingContext.ToDomain(),
		IdempotencyKey:     key,
	})
	if err != nil {
		abortWithCommandError(c, err)
		return
	}

	respond(c, http.StatusCreated, queries.NewBookingView(created))
}

// @Summary Update booking
// @Description Partially update a booking: reschedule, reassign, change status or notes
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Param request body reqdto.UpdateBookingRequest true "Update booking request"
// @Success 200 {object} resdto.BookingResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /api/bookings/{id} [patch]
func (h *BookingHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithCode(c, http.StatusBadRequest, err, string(commands.CodeValidation), "Invalid id", nil)
		return
	}
	actor, tenantID, ok := identity(c)
	if !ok {
		return
	}

	var req reqdto.UpdateBookingRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		httperr.AbortWithCode(c, http.StatusBadRequest, bindErr, string(commands.CodeValidation), "Invalid request", nil)
		return
	}

	updated, err := h.cmds.UpdateBooking(c.Request.Context(), commands.UpdateBookingInput{
		BookingID: id,
		TenantID:  tenantID,
		Actor:     actor,
		Patch: commands.BookingPatch{
			BarberID:           req.BarberID,
			BookingDate:        req.BookingDate,
			StartTime:          req.StartTime,
			ServiceIDs:         req.ServiceIDs,
			Status:             req.Status,
			Notes:              req.Notes,
			ExpectedTotalPrice: req.TotalPrice,
		},
	})
	if err != nil {
		abortWithCommandError(c, err)
		return
	}

	respond(c, http.StatusOK, queries.NewBookingView(updated))
}

// @Summary Get booking
// @Description Get a booking visible to the caller
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {object} resdto.BookingResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /api/bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithCode(c, http.StatusBadRequest, err, string(commands.CodeValidation), "Invalid id", nil)
		return
	}
	actor, tenantID, ok := identity(c)
	if !ok {
		return
	}

	view, err := h.q.GetByID(c.Request.Context(), tenantID, actor, id)
	if err != nil {
		if errs.Is(err, queries.ErrBookingNotFound) {
			httperr.AbortWithCode(c, http.StatusNotFound, err, string(commands.CodeNotFound), "Booking not found", nil)
			return
		}
		httperr.AbortWithCode(c, http.StatusInternalServerError, err, string(commands.CodeInternal), "Failed to load booking", nil)
		return
	}

	respond(c, http.StatusOK, view)
}

// @Summary List bookings
// @Description List bookings visible to the caller ordered by start time, with keyset pagination
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param shopId query string false "Shop ID"
// @Param from query string false "First booking date (YYYY-MM-DD)"
// @Param to query string false "Last booking date (YYYY-MM-DD)"
// @Param cursor query string false "nextCursor of the previous page"
// @Param limit query int false "Page size (1-200, default 20)"
// @Success 200 {object} resdto.BookingListResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Router /api/bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	actor, tenantID, ok := identity(c)
	if !ok {
		return
	}

	var req reqdto.ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httperr.AbortWithCode(c, http.StatusBadRequest, err, string(commands.CodeValidation), "Invalid query", nil)
		return
	}
	filter, err := req.ToFilter()
	if err != nil {
		httperr.AbortWithCode(c, http.StatusBadRequest, err, string(commands.CodeValidation), "Invalid query", nil)
		return
	}

	page, err := h.q.List(c.Request.Context(), tenantID, actor, filter)
	if err != nil {
		if errs.Is(err, queries.ErrInvalidCursor) {
			httperr.AbortWithCode(c, http.StatusBadRequest, err, string(commands.CodeValidation), "Invalid cursor", nil)
			return
		}
		httperr.AbortWithCode(c, http.StatusInternalServerError, err, string(commands.CodeInternal), "Failed to list bookings", nil)
		return
	}

	res, err := resdto.FromBookingPage(page)
	if err != nil {
		httperr.AbortWithCode(c, http.StatusInternalServerError, err, string(commands.CodeInternal), "Failed to render bookings", nil)
		return
	}
	c.JSON(http.StatusOK, res)
}

func identity(c *gin.Context) (actor booking.Actor, tenantID uuid.UUID, ok bool) {
	actor, actorOK := middleware.GetActor(c)
	tenantID, tenantOK := middleware.GetTenantID(c)
	if !actorOK || !tenantOK {
		httperr.AbortWithCode(c, http.StatusUnauthorized, errMissingIdentity, string(commands.CodeUnauthorized), "Unauthorized", nil)
		return actor, tenantID, false
	}
	return actor, tenantID, true
}

// idempotencyKey reads the optional Idempotency-Key header.
func idempotencyKey(c *gin.Context) (*uuid.UUID, error) {
	raw := c.GetHeader(idempotencyHeader)
	if raw == "" {
		return nil, nil
	}
	key, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func respond(c *gin.Context, status int, view *queries.BookingView) {
	res, err := resdto.FromBookingView(view)
	if err != nil {
		httperr.AbortWithCode(c, http.StatusInternalServerError, err, string(commands.CodeInternal), "Failed to render booking", nil)
		return
	}
	c.JSON(status, res)
}

var commandStatus = map[commands.ErrorCode]struct {
	status int
	msg    string
}{
	commands.CodeValidation:        {http.StatusBadRequest, "Invalid booking request"},
	commands.CodeLeadTimeViolation: {http.StatusUnprocessableEntity, "Booking starts too soon"},
	commands.CodeOutOfHours:        {http.StatusUnprocessableEntity, "Slot is outside working hours"},
	commands.CodeTooEarly:          {http.StatusUnprocessableEntity, "Status change is not allowed yet"},
	commands.CodeNoStaff:           {http.StatusUnprocessableEntity, "Booking has no assigned staff"},
	commands.CodePriceMismatch:     {http.StatusConflict, "Price has changed"},
	commands.CodeConflict:          {http.StatusConflict, "Slot is no longer available"},
	commands.CodeNotFound:          {http.StatusNotFound, "Booking not found"},
	commands.CodeForbidden:         {http.StatusForbidden, "Operation not allowed"},
	commands.CodeUnauthorized:      {http.StatusUnauthorized, "Not allowed to access this booking"},
	commands.CodeIdempotencyReused: {http.StatusConflict, "Idempotency-Key was already used with a different request"},
}

func abortWithCommandError(c *gin.Context, err error) {
	code := commands.Code(err)
	mapped, ok := commandStatus[code]
	if !ok {
		httperr.AbortWithCode(c, http.StatusInternalServerError, err, string(commands.CodeInternal), "Internal server error", nil)
		return
	}

	var detail any
	var mismatch *commands.PriceMismatchError
	if errs.As(err, &mismatch) {
		detail = resdto.PriceMismatchDetail{
			ExpectedTotalPrice: mismatch.Expected,
			ComputedTotalPrice: mismatch.Computed,
		}
	}
	httperr.AbortWithCode(c, mapped.status, err, string(code), mapped.msg, detail)
}
