package artifact

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"image/png"

	"flight-booking/internal/data/entity"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
	"golang.org/x/crypto/blake2b"
)

// InvoiceData is everything an invoice shows. The booking row is the
// source of truth; the document is derived from it.
type InvoiceData struct {
	Booking   *entity.Booking
	Flight    *entity.Flight
	Seat      *entity.Seat
	Passenger string
}

type Renderer interface {
	Render(ctx context.Context, data InvoiceData) ([]byte, error)
}

type pdfRenderer struct {
	issuer string
}

// NewPDFRenderer builds A4 invoices with a QR code of the confirmation code.
// Rendering the same booking twice yields identical bytes.
func NewPDFRenderer(issuer string) Renderer {
	return &pdfRenderer{issuer: issuer}
}

func (r *pdfRenderer) Render(ctx context.Context, data InvoiceData) ([]byte, error) {
	if data.Booking == nil || data.Flight == nil {
		return nil, fmt.Errorf("render invoice: booking and flight are required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := data.Booking
	f := data.Flight

	qr, err := qrPNG(b.ConfirmationCode, 256)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	// pinned dates and sorted catalogs keep the output byte-stable
	pdf.SetCreationDate(b.BookingTime)
	pdf.SetModificationDate(b.BookingTime)
	pdf.SetCatalogSort(true)
	pdf.SetTitle("Invoice "+b.ConfirmationCode, true)
	pdf.SetCreator(r.issuer, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, r.issuer+" - Booking Invoice", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	rows := [][2]string{
		{"Confirmation code", b.ConfirmationCode},
		{"Booking ID", b.ID.String()},
		{"Passenger", data.Passenger},
		{"Flight", f.FlightNumber},
		{"Route", f.Origin + " -> " + f.Destination},
		{"Departure", f.DepartureTime.UTC().Format("2006-01-02 15:04 MST")},
		{"Seat", b.SeatNumber},
	}
	if data.Seat != nil {
		rows = append(rows, [2]string{"Class", string(data.Seat.Class)})
	}
	rows = append(rows,
		[2]string{"Booked at", b.BookingTime.UTC().Format("2006-01-02 15:04 MST")},
		[2]string{"Status", string(b.Status)},
	)

	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(50, 8, row[0], "B", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, row[1], "B", 1, "L", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(50, 10, "Total", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 10, b.TotalPrice.StringFixed(2), "", 1, "L", false, 0, "")

	opt := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opt, bytes.NewReader(qr))
	pdf.ImageOptions("qr", 150, 20, 45, 45, false, opt, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}

	return buf.Bytes(), nil
}

func qrPNG(content string, size int) ([]byte, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, qr.Image(size)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Checksum is the hex blake2b-256 digest of a rendered document.
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
