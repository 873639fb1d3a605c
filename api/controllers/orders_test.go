package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	internalorders "github.com/enriquemoya/cardstock-backend/internal/orders"
	pkgerrors "github.com/enriquemoya/cardstock-backend/pkg/errors"
	"github.com/enriquemoya/cardstock-backend/pkg/pagination"
)

type stubOrdersService struct {
	order *internalorders.OrderView
	list  *internalorders.OrderList
	err   error

	gotOwner  uuid.UUID
	gotOrder  uuid.UUID
	gotParams pagination.Params
}

func (s *stubOrdersService) GetOrder(ctx context.Context, ownerID, orderID uuid.UUID) (*internalorders.OrderView, error) {
	s.gotOwner = ownerID
	s.gotOrder = orderID
	return s.order, s.err
}

func (s *stubOrdersService) ListOrders(ctx context.Context, ownerID uuid.UUID, params pagination.Params) (*internalorders.OrderList, error) {
	s.gotOwner = ownerID
	s.gotParams = params
	return s.list, s.err
}

func (s *stubOrdersService) ExpireDueOrders(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

func TestOrderListForwardsPagination(t *testing.T) {
	t.Parallel()

	svc := &stubOrdersService{list: &internalorders.OrderList{Orders: []internalorders.OrderView{}}}
	handler := OrderList(svc, nil)

	req := authedRequest(http.MethodGet, "/api/v1/orders?limit=5&cursor=abc", "")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.gotParams.Limit != 5 || svc.gotParams.Cursor != "abc" {
		t.Fatalf("unexpected params %+v", svc.gotParams)
	}
}

func TestOrderListRejectsOutOfRangeLimit(t *testing.T) {
	t.Parallel()

	handler := OrderList(&stubOrdersService{}, nil)

	req := authedRequest(http.MethodGet, "/api/v1/orders?limit=5000", "")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestOrderDetailParsesPath(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	svc := &stubOrdersService{order: &internalorders.OrderView{ID: orderID}}

	r := chi.NewRouter()
	r.Get("/orders/{orderId}", OrderDetail(svc, nil))

	req := authedRequest(http.MethodGet, "/orders/"+orderID.String(), "")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.gotOrder != orderID {
		t.Fatalf("expected order %s got %s", orderID, svc.gotOrder)
	}

	var envelope struct {
		Data internalorders.OrderView `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != orderID {
		t.Fatalf("expected order %s in body got %s", orderID, envelope.Data.ID)
	}
}

func TestOrderDetailRejectsMalformedID(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Get("/orders/{orderId}", OrderDetail(&stubOrdersService{}, nil))

	req := authedRequest(http.MethodGet, "/orders/not-a-uuid", "")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestOrderDetailMapsNotFound(t *testing.T) {
	t.Parallel()

	svc := &stubOrdersService{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	r := chi.NewRouter()
	r.Get("/orders/{orderId}", OrderDetail(svc, nil))

	req := authedRequest(http.MethodGet, "/orders/"+uuid.NewString(), "")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
