package capture

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"gocv.io/x/gocv"
)

// DataURLPrefix is the header of a base64 JPEG data URL.
const DataURLPrefix = "data:image/jpeg;base64,"

// DefaultJPEGQuality is the encoder quality used for streamed frames.
const DefaultJPEGQuality = 80

// EncodeJPEG compresses a frame to JPEG bytes.
func EncodeJPEG(frame *gocv.Mat, quality int) ([]byte, error) {
	if frame == nil || frame.Empty() {
		return nil, errors.New("empty frame")
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *frame, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	src := buf.GetBytes()
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

// DataURL wraps JPEG bytes in a data URL.
func DataURL(jpeg []byte) string {
	return DataURLPrefix + base64.StdEncoding.EncodeToString(jpeg)
}

// EncodeDataURL compresses a frame and wraps it in a data URL.
func EncodeDataURL(frame *gocv.Mat, quality int) (string, error) {
	jpeg, err := EncodeJPEG(frame, quality)
	if err != nil {
		return "", err
	}
	return DataURL(jpeg), nil
}

// DecodeDataURL extracts the JPEG bytes from a data URL.
func DecodeDataURL(s string) ([]byte, error) {
	header, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return nil, errors.New("not a base64 image data URL")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data URL: %w", err)
	}
	return data, nil
}
