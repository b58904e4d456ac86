package printer

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"tokopos/backend/internal/domain"
)

// Simulator stands in for the Bluetooth thermal printer. It lists one
// fixed device and every print succeeds after a fixed delay.
type Simulator struct {
	delay time.Duration
}

func NewSimulator() *Simulator {
	return &Simulator{delay: 2 * time.Second}
}

func (s *Simulator) Devices(_ context.Context) []domain.PrinterDevice {
	return []domain.PrinterDevice{
		{ID: "sim-thermal-01", Name: "POS Thermal Printer (simulated)"},
	}
}

func (s *Simulator) Print(ctx context.Context, deviceID string, _ []byte) (domain.PrintResult, error) {
	start := time.Now()
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return domain.PrintResult{}, ctx.Err()
	}
	return domain.PrintResult{
		DeviceID:   deviceID,
		Printed:    true,
		DurationMS: time.Since(start).Milliseconds(),
	}, nil
}

// RenderReceipt builds the ESC/POS payload and a plain-text preview for
// one transaction.
func RenderReceipt(tx domain.Transaction) (string, string) {
	lines := []string{
		"TokoPOS",
		"========================",
		"TX: " + tx.ID,
		"Pelanggan: " + tx.CustomerName,
		"Date: " + tx.CreatedAt.Format("2006-01-02 15:04:05"),
		"------------------------",
	}
	for _, item := range tx.Lines {
		lines = append(lines, fmt.Sprintf("%s x%d", item.Name, item.Quantity))
		lines = append(lines, fmt.Sprintf("  %d", item.Price*int64(item.Quantity)))
	}
	lines = append(lines,
		"------------------------",
		fmt.Sprintf("Total    : %d", tx.Total),
	)
	if tx.PaymentMethod == domain.PaymentCash {
		lines = append(lines,
			fmt.Sprintf("Bayar    : %d", tx.CashReceived),
			fmt.Sprintf("Kembali  : %d", tx.Change),
		)
	} else {
		lines = append(lines, "Metode   : Transfer")
	}
	lines = append(lines,
		"========================",
		"Terima kasih",
		"",
	)

	escpos := []byte{0x1b, 0x40}
	for _, line := range lines {
		escpos = append(escpos, []byte(line)...)
		escpos = append(escpos, '\n')
	}
	escpos = append(escpos, []byte{0x1d, 0x56, 0x41, 0x10}...)

	return base64.StdEncoding.EncodeToString(escpos), strings.Join(lines, "\n")
}
