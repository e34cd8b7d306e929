package sparql

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/sparqlkit/errors"
	"github.com/kbukum/sparqlkit/negotiation"
	"github.com/kbukum/sparqlkit/sparqltest"
)

func TestExecution_CloseFromAnotherGoroutine(t *testing.T) {
	srv := sparqltest.New(t)
	c, _ := newTestClient(t, Config{})
	var data strings.Builder
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&data, "<http://e/s> <http://e/p> <http://e/o%d> . ", i)
	}
	insert(t, c, srv, data.String())

	exec := c.Query(srv.QueryURL(), "SELECT * { ?s ?p ?o }")
	rows, err := exec.Select(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rows.Next() {
		t.Fatalf("expected a row, got %v", rows.Err())
	}

	closed := make(chan error, 1)
	go func() { closed <- exec.Close() }()
	n := 1
	for rows.Next() {
		n++
	}
	if err := <-closed; err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
	if err := rows.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if n > 200 {
		t.Errorf("expected at most 200 rows, got %d", n)
	}
	if exec.State() != StateClosed {
		t.Errorf("expected closed, got %s", exec.State())
	}
	if _, err := exec.Select(context.Background()); !errors.IsClosedExecution(err) {
		t.Errorf("expected closed execution, got %v", err)
	}
}

func TestExecution_TimeoutWhileStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", negotiation.MediaTSV)
		_, _ = io.WriteString(w, "?s\n<http://e/1>\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()
	c, _ := newTestClient(t, Config{})

	start := time.Now()
	exec := c.Query(srv.URL+"/sparql", "SELECT ?s { ?s ?p ?o }", WithTimeout(200*time.Millisecond))
	rows, err := exec.Select(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rows.Next() {
		t.Fatalf("expected the streamed row, got %v", rows.Err())
	}
	if got := rows.Row()["s"].GetValue(); got != "http://e/1" {
		t.Errorf("expected http://e/1, got %s", got)
	}
	if rows.Next() {
		t.Fatal("expected iteration to stop at the deadline")
	}
	if !errors.IsTimeout(rows.Err()) {
		t.Errorf("expected timeout, got %v", rows.Err())
	}
	if exec.State() != StateClosed {
		t.Errorf("expected the stream released and execution closed, got %s", exec.State())
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("expected the deadline to stop the read, took %s", elapsed)
	}
}
