package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"
)

// Assumes services are running locally with a deployed Fabric network.
const (
	CreditServiceURL = "http://localhost:8082"
	PoolServiceURL   = "http://localhost:8083"
	AuthServiceURL   = "http://localhost:8081"
)

// TestLoanLifecycle walks the whole flow: provider funds the pool, borrower
// takes a loan, repays it, and the pool ends up richer than it started.
func TestLoanLifecycle(t *testing.T) {
	if os.Getenv("E2E") == "" {
		t.Skip("set E2E=1 with services running to enable")
	}

	token := login(t)

	// 1. Provider seeds the pool.
	postJSON(t, token, PoolServiceURL+"/pool/deposits", map[string]interface{}{
		"provider": "lp-e2e",
		"amount":   100000,
	}, http.StatusCreated)

	before := poolStats(t)

	// 2. Borrower opens a loan.
	borrower := fmt.Sprintf("borrower-%d", time.Now().Unix())
	var created struct {
		LoanID uint64 `json:"loan_id"`
	}
	resp := postJSON(t, token, CreditServiceURL+"/loans", map[string]interface{}{
		"borrower":  borrower,
		"merchant":  "merchant-e2e",
		"amount":    1000,
		"guarantee": 200,
		"due_date":  time.Now().Add(30 * 24 * time.Hour).Unix(),
	}, http.StatusCreated)
	decode(t, resp, &created)
	if created.LoanID == 0 {
		t.Fatal("expected a loan id")
	}

	// 3. Borrower repays principal + interest in full.
	var repaid struct {
		Remaining int64  `json:"remaining"`
		Status    string `json:"status"`
	}
	resp = postJSON(t, token, fmt.Sprintf("%s/loans/%d/repayments", CreditServiceURL, created.LoanID),
		map[string]interface{}{"borrower": borrower, "amount": 1100}, http.StatusOK)
	decode(t, resp, &repaid)
	if repaid.Remaining != 0 || repaid.Status != "REPAID" {
		t.Fatalf("expected full repayment, got %+v", repaid)
	}

	// 4. Interest raised the pool's value.
	after := poolStats(t)
	if after.TotalLiquidity <= before.TotalLiquidity {
		t.Fatalf("pool did not earn interest: %d -> %d", before.TotalLiquidity, after.TotalLiquidity)
	}
	if after.LockedLiquidity != before.LockedLiquidity {
		t.Fatalf("locked liquidity not released: %d -> %d", before.LockedLiquidity, after.LockedLiquidity)
	}
}

type stats struct {
	TotalLiquidity  int64 `json:"total_liquidity"`
	LockedLiquidity int64 `json:"locked_liquidity"`
}

func poolStats(t *testing.T) stats {
	t.Helper()
	resp, err := http.Get(PoolServiceURL + "/pool/stats")
	if err != nil {
		t.Fatalf("pool stats: %v", err)
	}
	defer resp.Body.Close()
	var s stats
	decode(t, resp, &s)
	return s
}

func login(t *testing.T) string {
	t.Helper()
	username := fmt.Sprintf("e2e-%d", time.Now().UnixNano())
	postJSON(t, "", AuthServiceURL+"/auth/register", map[string]interface{}{
		"username":  username,
		"password":  "e2e-password-1",
		"full_name": "E2E Runner",
		"email":     username + "@example.com",
	}, http.StatusCreated)

	resp := postJSON(t, "", AuthServiceURL+"/auth/login", map[string]interface{}{
		"username": username,
		"password": "e2e-password-1",
	}, http.StatusOK)
	var tok struct {
		Token string `json:"token"`
	}
	decode(t, resp, &tok)
	return tok.Token
}

func postJSON(t *testing.T, token, url string, payload interface{}, wantStatus int) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("POST %s: status %d, want %d", url, resp.StatusCode, wantStatus)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}
