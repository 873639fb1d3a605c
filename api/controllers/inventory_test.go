package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/enriquemoya/cardstock-backend/api/middleware"
	inventorysvc "github.com/enriquemoya/cardstock-backend/internal/inventory"
)

type stubInventoryService struct {
	items []inventorysvc.ItemAvailability
	item  *inventorysvc.ItemAvailability
	err   error

	gotBranch uuid.UUID
}

func (s *stubInventoryService) ListAvailability(ctx context.Context, branchID uuid.UUID) ([]inventorysvc.ItemAvailability, error) {
	s.gotBranch = branchID
	return s.items, s.err
}

func (s *stubInventoryService) GetAvailability(ctx context.Context, inventoryID uuid.UUID) (*inventorysvc.ItemAvailability, error) {
	return s.item, s.err
}

func TestInventoryAvailabilityUsesQueryBranch(t *testing.T) {
	t.Parallel()

	branchID := uuid.New()
	svc := &stubInventoryService{items: []inventorysvc.ItemAvailability{}}
	handler := InventoryAvailability(svc, nil)

	req := authedRequest(http.MethodGet, "/api/v1/inventory?branch_id="+branchID.String(), "")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.gotBranch != branchID {
		t.Fatalf("expected branch %s got %s", branchID, svc.gotBranch)
	}
}

func TestInventoryAvailabilityFallsBackToClaimBranch(t *testing.T) {
	t.Parallel()

	branchID := uuid.New()
	svc := &stubInventoryService{items: []inventorysvc.ItemAvailability{}}
	handler := InventoryAvailability(svc, nil)

	req := authedRequest(http.MethodGet, "/api/v1/inventory", "")
	ctx := middleware.WithBranchID(req.Context(), branchID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req.WithContext(ctx))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.gotBranch != branchID {
		t.Fatalf("expected branch %s got %s", branchID, svc.gotBranch)
	}
}

func TestInventoryAvailabilityRequiresBranch(t *testing.T) {
	t.Parallel()

	handler := InventoryAvailability(&stubInventoryService{}, nil)

	req := authedRequest(http.MethodGet, "/api/v1/inventory", "")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
