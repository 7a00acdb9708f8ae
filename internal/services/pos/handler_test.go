package pos

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-dining/internal/logger"
	"smart-dining/internal/models"
	"smart-dining/internal/workflow"
)

func TestTransactionFilterFromQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "/inventory/transactions?menu_item_id=3&type=sale&order_id=7&limit=20&from=2026-08-01T00:00:00Z", nil)

	filter, err := transactionFilterFromQuery(r)
	require.NoError(t, err)

	assert.Equal(t, 3, filter.MenuItemID)
	assert.Equal(t, models.TransactionSale, filter.Type)
	assert.Equal(t, 7, filter.OrderID)
	assert.Equal(t, 20, filter.Limit)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), filter.From)
	assert.True(t, filter.To.IsZero())
}

func TestTransactionFilterFromQueryRejectsBadValues(t *testing.T) {
	for _, query := range []string{
		"menu_item_id=abc",
		"limit=-1",
		"from=yesterday",
	} {
		r := httptest.NewRequest("GET", "/inventory/transactions?"+query, nil)
		_, err := transactionFilterFromQuery(r)
		assert.Error(t, err, "query %q", query)
	}
}

func TestAuditQueryFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/audit?entity_type=order&entity_id=7&event=status_changed&limit=10", nil)

	query, err := auditQueryFromRequest(r)
	require.NoError(t, err)

	assert.Equal(t, "order", query.EntityType)
	assert.Equal(t, 7, query.EntityID)
	assert.Equal(t, "status_changed", query.Event)
	assert.Equal(t, 10, query.Limit)
}

func TestActorFromRequest(t *testing.T) {
	r := httptest.NewRequest("POST", "/orders", nil)
	assert.Nil(t, actorFromRequest(r))

	r.Header.Set("X-Staff-ID", "5")
	actor := actorFromRequest(r)
	require.NotNil(t, actor)
	assert.Equal(t, 5, *actor)

	r.Header.Set("X-Staff-ID", "not-a-number")
	assert.Nil(t, actorFromRequest(r))
}

func TestWriteWorkflowErrorStatusMapping(t *testing.T) {
	h := NewHandler(nil, logger.New("pos-test"))

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", workflow.ErrValidation("bad input"), 400},
		{"insufficient stock", workflow.ErrInsufficientStock("Nasi Goreng", 2, "portion"), 400},
		{"not found", workflow.ErrOrderNotFound(7), 404},
		{"invalid transition", workflow.ErrInvalidTransition(7, models.StatusPending, models.StatusReady), 422},
		{"items not ready", workflow.ErrItemsNotReady(7, 2), 422},
		{"insufficient payment", workflow.ErrInsufficientPayment(7, 100, 200), 422},
		{"conflict", workflow.ErrConflict(7), 409},
		{"unknown", assert.AnError, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.writeWorkflowError(w, tt.err, "req-1")
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
