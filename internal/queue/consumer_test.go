package queue

import (
    "context"
    "encoding/json"
    "os"
    "path/filepath"
    "strings"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/bookcore/internal/logging"
    "github.com/iliyamo/bookcore/internal/repository/memstore"
)

func newTestConsumer(t *testing.T) (*Consumer, *memstore.Store, string) {
    t.Helper()
    store := memstore.New()
    dir := t.TempDir()
    return NewConsumer("amqp://unused", store.Stats(), dir, logging.Discard()), store, dir
}

func mustJSON(t *testing.T, ev Event) []byte {
    t.Helper()
    b, err := json.Marshal(ev)
    require.NoError(t, err)
    return b
}

func TestHandleMessage_UserRegisteredInitialisesMonths(t *testing.T) {
    c, store, _ := newTestConsumer(t)
    ctx := context.Background()

    require.NoError(t, c.HandleMessage(ctx, mustJSON(t, Event{Type: UserRegistered, UserID: "u1", OccurredAt: time.Now()})))

    rows, err := store.Stats().ListByUser(ctx, "u1")
    require.NoError(t, err)
    require.Len(t, rows, 12)
    assert.Equal(t, "January", rows[0].Month)
    assert.Equal(t, "December", rows[11].Month)
    for _, r := range rows {
        assert.Zero(t, r.BooksRead)
    }
}

func TestHandleMessage_LoanReturnedCountsMonthOfReturn(t *testing.T) {
    c, store, _ := newTestConsumer(t)
    ctx := context.Background()
    returned := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)

    require.NoError(t, c.HandleMessage(ctx, mustJSON(t, Event{Type: UserRegistered, UserID: "u1"})))
    for i := 0; i < 2; i++ {
        require.NoError(t, c.HandleMessage(ctx, mustJSON(t, Event{
            Type: LoanReturned, UserID: "u1", BookID: "b1", ReturnDate: &returned, OccurredAt: returned,
        })))
    }

    rows, err := store.Stats().ListByUser(ctx, "u1")
    require.NoError(t, err)
    for _, r := range rows {
        if r.Month == "March" {
            assert.Equal(t, 2, r.BooksRead)
        } else {
            assert.Zero(t, r.BooksRead, r.Month)
        }
    }
}

func TestHandleMessage_WritesActivityLog(t *testing.T) {
    c, _, dir := newTestConsumer(t)
    at := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)

    require.NoError(t, c.HandleMessage(context.Background(), mustJSON(t, Event{
        Type: LoanBorrowed, UserID: "u1", BookID: "b1", BookTitle: "Dune", LoanID: "l1", OccurredAt: at,
    })))

    data, err := os.ReadFile(filepath.Join(dir, "activity.log"))
    require.NoError(t, err)
    line := strings.TrimSpace(string(data))
    assert.Equal(t, `[2026-05-01T12:00:00Z] loan.borrowed | user_id=u1 | book_id=b1 | book="Dune" | loan_id=l1`, line)
}

func TestHandleMessage_RejectsBadPayload(t *testing.T) {
    c, _, _ := newTestConsumer(t)

    assert.Error(t, c.HandleMessage(context.Background(), []byte("{not json")))
    assert.Error(t, c.HandleMessage(context.Background(), []byte(`{"user_id":"u1"}`)))
}

func TestRunStopsWhenContextCancelled(t *testing.T) {
    c, _, _ := newTestConsumer(t)
    ctx, cancel := context.WithCancel(context.Background())
    cancel()

    assert.ErrorIs(t, c.Run(ctx), context.Canceled)
}

func TestRecorder(t *testing.T) {
    r := NewRecorder()
    require.NoError(t, r.Publish(context.Background(), Event{Type: OrderPlaced}))
    require.NoError(t, NopPublisher{}.Publish(context.Background(), Event{Type: OrderPlaced}))
    assert.Equal(t, []string{OrderPlaced}, r.Types())
}
