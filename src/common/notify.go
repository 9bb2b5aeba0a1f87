package common

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"strings"

	"frs/src/lib"
	"frs/src/models"

	"github.com/gosimple/slug"
	"github.com/jung-kurt/gofpdf"
)

var sendMail = lib.SendMail

// DispatchPassIssued mails the credential to the pass owner. It runs
// after the reconciliation transaction has committed, so nothing here is
// allowed to fail the caller: a broken PDF render drops the attachment,
// a broken mail send is logged and swallowed.
func DispatchPassIssued(pass *models.Pass, user *models.User) {
	input := &lib.SendMailInput{
		From:     os.Getenv("MAIL_FROM"),
		FromName: os.Getenv("MAIL_FROM_NAME"),
		To:       []string{user.Email},
		Subject:  fmt.Sprintf("Your %s is confirmed", passTypeLabel(pass)),
		Body: fmt.Sprintf(
			"<p>Hi %s,</p><p>Your payment for order <b>%s</b> is confirmed and your pass is ready. Present the attached QR code at the venue gate.</p>",
			user.Name, pass.OrderID),
		Html: true,
	}
	att, err := RenderPassPDF(pass, user)
	if err != nil {
		log.Printf("Could not render pass PDF for order %s, sending without attachment: %s\n", pass.OrderID, err.Error())
	} else {
		input.Attachments = []lib.Attachment{*att}
	}
	if err := sendMail(input); err != nil {
		log.Printf("Error sending pass email for order %s: %s\n", pass.OrderID, err.Error())
	}
}

// RenderPassPDF builds the printable credential: pass details plus the
// QR image rendered from the encrypted token.
func RenderPassPDF(pass *models.Pass, user *models.User) (*lib.Attachment, error) {
	qrImage, err := lib.RenderQRCode(pass.QRCode)
	if err != nil {
		return nil, err
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "Festival Entry Pass", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.Ln(4)
	pdf.CellFormat(0, 8, fmt.Sprintf("Name: %s", user.Name), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Pass: %s", passTypeLabel(pass)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Order: %s", pass.OrderID), "", 1, "L", false, 0, "")
	if pass.TeamSnapshot != nil {
		pdf.CellFormat(0, 8, fmt.Sprintf("Team: %s (%d members)", pass.TeamSnapshot.Name, pass.TeamSnapshot.MemberCount), "", 1, "L", false, 0, "")
	}
	opts := gofpdf.ImageOptions{ImageType: "JPEG"}
	pdf.RegisterImageOptionsReader("pass-qr", opts, bytes.NewReader(qrImage))
	pdf.ImageOptions("pass-qr", 75, 110, 60, 60, false, opts, 0, "")
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%s.pdf", slug.Make(fmt.Sprintf("%s %s", pass.PassType, pass.OrderID)))
	return &lib.Attachment{
		Filename:    name,
		ContentType: "application/pdf",
		Content:     buf.Bytes(),
	}, nil
}

func passTypeLabel(pass *models.Pass) string {
	return strings.ReplaceAll(string(pass.PassType), "_", " ")
}
