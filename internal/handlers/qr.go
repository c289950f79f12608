package handlers

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"

	qrcode "github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"
)

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// QRHandler renders a code's printable QR image. The image always encodes
// the redirect entry point, never the destination itself, so every print
// scan goes through tracking.
type QRHandler struct {
	Codes    *CodeHandler
	ShortURL func(shortCode string) string
	Log      *slog.Logger
}

func (h *QRHandler) PNG(w http.ResponseWriter, r *http.Request) {
	code, ok := h.Codes.load(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	fg := code.QRColor
	if c := q.Get("fg"); hexColorRe.MatchString(c) {
		fg = c
	}

	ecl, ok := errorCorrection(q.Get("ecl"))
	if !ok {
		jsonError(w, "ecl must be one of L, M, Q, H", http.StatusBadRequest)
		return
	}

	opts := []standard.ImageOption{
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
		standard.WithQRWidth(10),
		standard.WithBorderWidth(20),
	}
	if bg := q.Get("bg"); hexColorRe.MatchString(bg) {
		opts = append(opts, standard.WithBgColorRGBHex(bg))
	} else {
		opts = append(opts, standard.WithBgTransparent())
	}
	if q.Get("shape") == "circle" {
		opts = append(opts, standard.WithCircleShape())
	}
	if hexColorRe.MatchString(fg) {
		opts = append(opts, standard.WithFgColorRGBHex(fg))
	}

	png, err := renderQR(h.ShortURL(code.ShortCode), ecl, opts...)
	if err != nil {
		h.Log.Error("render qr", slog.String("code_id", code.ID), slog.Any("error", err))
		jsonError(w, "failed to render qr code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	if q.Get("dl") == "1" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+code.ShortCode+`-qr.png"`)
	}
	w.Write(png)
}

// errorCorrection maps the ecl query value to an encoder option. Empty means
// medium, the library default.
func errorCorrection(level string) (qrcode.EncodeOption, bool) {
	switch strings.ToUpper(level) {
	case "L":
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionLow), true
	case "", "M":
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionMedium), true
	case "Q":
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionQuart), true
	case "H":
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionHighest), true
	default:
		return nil, false
	}
}

func renderQR(content string, ecl qrcode.EncodeOption, opts ...standard.ImageOption) ([]byte, error) {
	qrc, err := qrcode.NewWith(content, ecl)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := qrc.Save(standard.NewWithWriter(nopCloser{&buf}, opts...)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
