package capture

// DataURLSource reads frames from a camera and encodes each one as a JPEG
// data URL.
type DataURLSource struct {
	cam     Camera
	quality int
}

// NewDataURLSource wraps cam. A quality of zero selects DefaultJPEGQuality.
func NewDataURLSource(cam Camera, quality int) *DataURLSource {
	return &DataURLSource{cam: cam, quality: quality}
}

// Frame reads and encodes the current camera frame. It fails with
// ErrCameraNotOpen while the camera is off.
func (s *DataURLSource) Frame() (string, error) {
	mat, err := s.cam.ReadFrame()
	if err != nil {
		return "", err
	}
	defer mat.Close()

	return EncodeDataURL(mat, s.quality)
}
