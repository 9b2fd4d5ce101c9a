package handlers

import (
	"errors"
	"net/http"

	"auction-marketplace/internal/domain"
	"auction-marketplace/internal/services"
	"auction-marketplace/pkg/logger"

	"github.com/labstack/echo/v4"
)

type ListingHandler struct {
	listings   *services.ListingService
	engine     *services.BiddingEngine
	settlement *services.SettlementProcessor
	scanner    *services.OutbidScanner
	log        logger.Logger
}

func NewListingHandler(
	listings *services.ListingService,
	engine *services.BiddingEngine,
	settlement *services.SettlementProcessor,
	scanner *services.OutbidScanner,
	log logger.Logger,
) *ListingHandler {
	return &ListingHandler{
		listings:   listings,
		engine:     engine,
		settlement: settlement,
		scanner:    scanner,
		log:        log,
	}
}

func (h *ListingHandler) CreateListing(c echo.Context) error {
	var req CreateListingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	listing, err := h.listings.CreateListing(c.Request().Context(), services.CreateListingInput{
		SellerID:       req.SellerID,
		Name:           req.Name,
		Description:    req.Description,
		MinPrice:       req.MinPrice,
		AvailableUntil: req.AvailableUntil,
	})
	if err != nil {
		return h.errorResponse(c, err, "failed to create listing")
	}

	return c.JSON(http.StatusCreated, toListingResponse(listing))
}

func (h *ListingHandler) GetListing(c echo.Context) error {
	details, err := h.listings.GetListing(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.errorResponse(c, err, "failed to load listing")
	}

	resp := ListingDetailsResponse{
		Listing: toListingResponse(details.Listing),
		Bids:    make([]BidResponse, 0, len(details.Bids)),
	}
	for _, b := range details.Bids {
		resp.Bids = append(resp.Bids, toBidResponse(b))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ListingHandler) UpdateAvailability(c echo.Context) error {
	var req UpdateAvailabilityRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	listing, err := h.listings.UpdateAvailability(c.Request().Context(), c.Param("id"), req.AvailableUntil)
	if err != nil {
		return h.errorResponse(c, err, "failed to update availability")
	}
	return c.JSON(http.StatusOK, toListingResponse(listing))
}

func (h *ListingHandler) CancelSchedule(c echo.Context) error {
	if err := h.listings.CancelSchedule(c.Request().Context(), c.Param("id")); err != nil {
		return h.errorResponse(c, err, "failed to cancel schedule")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ListingHandler) AssignExpert(c echo.Context) error {
	var req AssignExpertRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	listing, err := h.listings.AssignExpert(c.Request().Context(), c.Param("id"), req.ExpertID)
	if err != nil {
		return h.errorResponse(c, err, "failed to assign expert")
	}
	return c.JSON(http.StatusOK, toListingResponse(listing))
}

func (h *ListingHandler) PlaceBid(c echo.Context) error {
	var req PlaceBidRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.engine.PlaceBid(c.Request().Context(), c.Param("id"), req.BidderID, req.Amount)
	if err != nil {
		return h.errorResponse(c, err, domain.ErrBidFailed.Error())
	}

	resp := PlaceBidResponse{Bid: toBidResponse(result.Bid)}
	if result.Outbid != nil {
		resp.OutbidBidderID = result.Outbid.BidderID
	}
	return c.JSON(http.StatusCreated, resp)
}

// Settle runs settlement for one listing immediately, outside the scheduler.
func (h *ListingHandler) Settle(c echo.Context) error {
	outcome, err := h.settlement.Settle(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.errorResponse(c, err, "failed to settle listing")
	}

	status := http.StatusOK
	if outcome.Status == services.SettlementListingMissing {
		status = http.StatusNotFound
	}
	return c.JSON(status, toSettleResponse(outcome))
}

func (h *ListingHandler) ScanOutbid(c echo.Context) error {
	userID := c.Param("id")
	notices, err := h.scanner.Scan(c.Request().Context(), userID)
	if err != nil {
		return h.errorResponse(c, err, "failed to scan bids")
	}
	return c.JSON(http.StatusOK, OutbidResponse{UserID: userID, Notices: notices})
}

// bindAndValidate returns an *echo.HTTPError carrying an ErrorResponse, so the
// default error handler renders it as-is.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			if msg, ok := he.Message.(string); ok {
				return echo.NewHTTPError(he.Code, ErrorResponse{Error: msg})
			}
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	return nil
}

func (h *ListingHandler) errorResponse(c echo.Context, err error, fallback string) error {
	if errors.Is(err, domain.ErrListingNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:  domain.ErrListingNotFound.Error(),
			Reason: string(domain.RejectListingNotFound),
		})
	}
	if reason, ok := domain.RejectionReason(err); ok {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Reason: string(reason)})
	}
	if errors.Is(err, domain.ErrListingSold) {
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	}

	h.log.Error("Request failed", "method", c.Request().Method, "path", c.Path(),
		"listing_id", c.Param("id"), "error", err)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: fallback})
}
