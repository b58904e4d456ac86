package printer

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"tokopos/backend/internal/domain"
)

func sampleTransaction() domain.Transaction {
	return domain.Transaction{
		ID:            "trx-1",
		CustomerName:  "Budi",
		PaymentMethod: domain.PaymentCash,
		CashReceived:  200000,
		Change:        50000,
		Total:         150000,
		Lines: []domain.TransactionLine{
			{ProductID: "prd-1", Name: "Kemeja Putih", Price: 150000, Quantity: 1},
		},
		CreatedAt: time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
	}
}

func TestRenderReceiptCashPayment(t *testing.T) {
	payload, preview := RenderReceipt(sampleTransaction())

	for _, want := range []string{"TokoPOS", "Budi", "Kemeja Putih x1", "Total    : 150000", "Bayar    : 200000", "Kembali  : 50000", "Terima kasih"} {
		if !strings.Contains(preview, want) {
			t.Fatalf("preview missing %q:\n%s", want, preview)
		}
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte{0x1b, 0x40}) {
		t.Fatalf("payload missing init sequence: % x", raw[:2])
	}
	if !bytes.HasSuffix(raw, []byte{0x1d, 0x56, 0x41, 0x10}) {
		t.Fatal("payload missing cut sequence")
	}
}

func TestRenderReceiptTransferPayment(t *testing.T) {
	tx := sampleTransaction()
	tx.PaymentMethod = domain.PaymentTransfer
	tx.CashReceived = 0
	tx.Change = 0

	_, preview := RenderReceipt(tx)
	if !strings.Contains(preview, "Metode   : Transfer") {
		t.Fatalf("preview missing transfer label:\n%s", preview)
	}
	if strings.Contains(preview, "Bayar") || strings.Contains(preview, "Kembali") {
		t.Fatalf("transfer receipt carries cash lines:\n%s", preview)
	}
}

func TestSimulatorListsOneDevice(t *testing.T) {
	sim := NewSimulator()
	devices := sim.Devices(context.Background())
	if len(devices) != 1 || devices[0].ID != "sim-thermal-01" {
		t.Fatalf("devices = %+v", devices)
	}
}

func TestPrintHonoursContextCancellation(t *testing.T) {
	sim := NewSimulator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Print(ctx, "sim-thermal-01", []byte("payload"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestPrintCompletesAfterDelay(t *testing.T) {
	sim := &Simulator{delay: 10 * time.Millisecond}
	result, err := sim.Print(context.Background(), "sim-thermal-01", []byte("payload"))
	if err != nil {
		t.Fatalf("Print: %v", err)
	}
	if !result.Printed || result.DeviceID != "sim-thermal-01" {
		t.Fatalf("result = %+v", result)
	}
	if result.DurationMS < 10 {
		t.Fatalf("duration = %dms, want at least the simulated delay", result.DurationMS)
	}
}
