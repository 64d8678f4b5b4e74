package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/yeremiapane/line-order/utils"
	"gorm.io/gorm"
)

// LabelService renders bag labels as PDF documents.
type LabelService struct {
	db *gorm.DB
	// FontPath points at a TTF font with Thai glyphs. Without it the core
	// Helvetica font is used and non Latin-1 characters are lost.
	FontPath string
	ShopName string
}

func NewLabelService(db *gorm.DB, fontPath, shopName string) *LabelService {
	return &LabelService{db: db, FontPath: fontPath, ShopName: shopName}
}

// BagLabel renders a 100x150 mm label for one order.
func (s *LabelService) BagLabel(ctx context.Context, orderName string) ([]byte, error) {
	order, err := loadOrder(s.db.WithContext(ctx), orderName)
	if err != nil {
		return nil, err
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "mm",
		Size:    fpdf.SizeType{Wd: 100, Ht: 150},
	})
	pdf.SetMargins(6, 6, 6)
	pdf.SetAutoPageBreak(true, 6)
	pdf.SetTitle("Bag label "+order.Name, true)

	family := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if s.FontPath != "" {
		family = "label"
		pdf.AddUTF8Font(family, "", s.FontPath)
		pdf.AddUTF8Font(family, "B", s.FontPath)
		tr = func(txt string) string { return txt }
	}

	pdf.AddPage()

	if s.ShopName != "" {
		pdf.SetFont(family, "", 10)
		pdf.CellFormat(0, 6, tr(s.ShopName), "", 1, "C", false, 0, "")
	}

	pdf.SetFont(family, "B", 20)
	pdf.CellFormat(0, 12, tr(order.Name), "B", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont(family, "B", 14)
	pdf.MultiCell(0, 7, tr(order.Customer.CustomerName), "", "L", false)
	pdf.SetFont(family, "", 11)
	if order.Customer.MobileNo != "" {
		pdf.CellFormat(0, 6, tr("Tel: "+order.Customer.MobileNo), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, tr("Delivery: "+order.DeliveryDate.Format("02/01/2006")), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	for _, item := range order.Items {
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d x %s", item.Qty, item.ItemName)), "", "L", false)
	}

	pdf.Ln(2)
	pdf.SetFont(family, "B", 12)
	pdf.CellFormat(0, 7, tr("Total: "+utils.FormatTHB(order.GrandTotal)), "T", 1, "R", false, 0, "")

	if order.Note != "" {
		pdf.SetFont(family, "", 10)
		pdf.MultiCell(0, 5, tr("Note: "+order.Note), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render bag label for %s: %w", order.Name, err)
	}
	return buf.Bytes(), nil
}
