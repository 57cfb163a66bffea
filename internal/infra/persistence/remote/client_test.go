package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"venueadmin/internal/adapters/httpapi"
	"venueadmin/internal/infra/persistence/memory"
	"venueadmin/internal/infra/persistence/persistencetest"
	"venueadmin/internal/infra/persistence/remote"
	"venueadmin/pkg/domain"
)

var secret = []byte("remote-client-test-secret")

func serve(t *testing.T, store domain.RecordStore) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(httpapi.NewRouter(store, httpapi.WithJWTSecret(secret)))
	t.Cleanup(srv.Close)
	return srv
}

func token(t *testing.T) string {
	t.Helper()
	tok, _, err := httpapi.IssueToken(secret, "remote-test", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func TestClientContract(t *testing.T) {
	persistencetest.Run(t, func(t *testing.T) domain.RecordStore {
		srv := serve(t, memory.NewStore())
		client, err := remote.New(srv.URL, remote.WithToken(token(t)), remote.WithEchoedUpdates(), remote.WithHTTPClient(srv.Client()))
		if err != nil {
			t.Fatalf("new client: %v", err)
		}
		return client
	})
}

func TestClientUpdateWithoutEcho(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	srv := serve(t, mem)
	client, err := remote.New(srv.URL+"/", remote.WithToken(token(t)))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	created, err := client.Insert(ctx, domain.Record{Kind: domain.KindException, ParentID: "bar 7", Key: "2026-12-24", Fields: json.RawMessage(`{"closed":true}`)})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := client.Update(ctx, created.ID, domain.Record{Kind: domain.KindException, ParentID: "bar 7", Key: "2026-12-24", Fields: json.RawMessage(`{"closed":false}`)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.ID != "" {
		t.Fatalf("expected zero record for an unechoed update, got %+v", got)
	}
	stored, err := mem.List(ctx, domain.KindException, "bar 7")
	if err != nil || len(stored) != 1 || string(stored[0].Fields) != `{"closed":false}` {
		t.Fatalf("expected update applied server side, got %v %+v", err, stored)
	}
}

func TestClientRejectsBadURLs(t *testing.T) {
	for _, raw := range []string{"", "localhost:8080", "://nope", "/relative"} {
		if _, err := remote.New(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestClientMapsStatusCodes(t *testing.T) {
	ctx := context.Background()

	unauthorized, err := remote.New(serve(t, memory.NewStore()).URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = unauthorized.List(ctx, domain.KindSeatOption, "bar-1")
	if err == nil || errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidRecord) {
		t.Fatalf("expected plain status error for 401, got %v", err)
	}

	teapot := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"fields rejected"}`))
	}))
	defer teapot.Close()
	client, err := remote.New(teapot.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.Delete(ctx, "abc"); !errors.Is(err, domain.ErrInvalidRecord) {
		t.Fatalf("expected 422 to map onto invalid record, got %v", err)
	}
}
