package photo

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"

	"zeptical/pkg/apperr"
	"zeptical/pkg/asset"
	"zeptical/pkg/metrics"

	"github.com/disintegration/imaging"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeImage(t *testing.T, f imaging.Format) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 32, 24))
	for x := 0; x < 32; x++ {
		for y := 0; y < 24; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 8), G: uint8(y * 10), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, f))
	return buf.Bytes()
}

func newLocalPipeline(t *testing.T) (*Pipeline, *asset.Local, *metrics.Metrics) {
	t.Helper()
	store, err := asset.NewLocal(t.TempDir(), "http://localhost:8081")
	require.NoError(t, err)
	m := metrics.New()
	return New(store, 70, nil, m), store, m
}

func TestValidate(t *testing.T) {
	png := encodeImage(t, imaging.PNG)
	jpg := encodeImage(t, imaging.JPEG)

	_, err := Validate(FromBytes("a.png", png), MaxBytes)
	assert.NoError(t, err)
	_, err = Validate(FromBytes("a.jpg", jpg), MaxBytes)
	assert.NoError(t, err)

	// the declared name does not matter, the bytes do
	_, err = Validate(FromBytes("a.jpg", encodeImage(t, imaging.GIF)), MaxBytes)
	assert.True(t, apperr.Is(err, apperr.KindUnsupportedMedia))

	_, err = Validate(FromBytes("notes.png", []byte("plain text")), MaxBytes)
	assert.True(t, apperr.Is(err, apperr.KindUnsupportedMedia))

	_, err = Validate(FromBytes("a.png", png), int64(len(png)-1))
	assert.True(t, apperr.Is(err, apperr.KindPayloadTooLarge))

	_, err = Validate(nil, MaxBytes)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestValidateUndeclaredSize(t *testing.T) {
	png := encodeImage(t, imaging.PNG)
	u := FromBytes("a.png", png)
	u.Size = 0
	_, err := Validate(u, 10)
	assert.True(t, apperr.Is(err, apperr.KindPayloadTooLarge))
}

func TestProcessStoresJPEG(t *testing.T) {
	p, store, _ := newLocalPipeline(t)

	url, err := p.Process(context.Background(), asset.ProjectPhoto, FromBytes("shot.png", encodeImage(t, imaging.PNG)), MaxBytes)
	require.NoError(t, err)
	assert.Regexp(t, `^http://localhost:8081/images/project_photo/[0-9a-f-]{36}\.jpeg$`, url)

	name, err := asset.NameFromURL(url)
	require.NoError(t, err)
	f, err := os.Open(filepath.Join(store.Dir(asset.ProjectPhoto), name))
	require.NoError(t, err)
	defer f.Close()
	_, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestProcessCorruptImage(t *testing.T) {
	p, store, m := newLocalPipeline(t)
	corrupt := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x01}, 64)...)

	_, err := p.Process(context.Background(), asset.ProjectPhoto, FromBytes("x.jpg", corrupt), MaxBytes)
	assert.True(t, apperr.Is(err, apperr.KindAssetProcessing))

	names, err := store.List(context.Background(), asset.ProjectPhoto)
	require.NoError(t, err)
	assert.Empty(t, names)
	series, err := testutil.GatherAndCount(m.Registry(), "zeptical_uploads_rejected_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

// pngHeader returns a PNG whose IHDR declares w x h pixels and carries no image data.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 17)
	copy(ihdr, "IHDR")
	binary.BigEndian.PutUint32(ihdr[4:], w)
	binary.BigEndian.PutUint32(ihdr[8:], h)
	ihdr[12] = 8 // bit depth
	ihdr[13] = 6 // RGBA

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(13))
	buf.Write(ihdr)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(ihdr))
	return buf.Bytes()
}

func TestProcessRejectsOversizedDimensions(t *testing.T) {
	p, store, m := newLocalPipeline(t)
	bomb := pngHeader(40000, 40000)

	_, err := Validate(FromBytes("big.png", bomb), MaxBytes)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUnsupportedMedia))

	_, err = p.Process(context.Background(), asset.ProjectPhoto, FromBytes("big.png", bomb), MaxBytes)
	assert.True(t, apperr.Is(err, apperr.KindUnsupportedMedia))

	names, err := store.List(context.Background(), asset.ProjectPhoto)
	require.NoError(t, err)
	assert.Empty(t, names)
	series, err := testutil.GatherAndCount(m.Registry(), "zeptical_uploads_rejected_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

func TestDiscardRemovesStoredFile(t *testing.T) {
	p, store, _ := newLocalPipeline(t)
	ctx := context.Background()

	oldURL, err := p.Process(ctx, asset.ProfilePhoto, FromBytes("a.png", encodeImage(t, imaging.PNG)), AvatarMaxBytes)
	require.NoError(t, err)
	newURL, err := p.Process(ctx, asset.ProfilePhoto, FromBytes("b.jpg", encodeImage(t, imaging.JPEG)), AvatarMaxBytes)
	require.NoError(t, err)
	assert.NotEqual(t, oldURL, newURL)
	p.Discard(ctx, asset.ProfilePhoto, oldURL)

	names, err := store.List(context.Background(), asset.ProfilePhoto)
	require.NoError(t, err)
	newName, _ := asset.NameFromURL(newURL)
	assert.Equal(t, []string{newName}, names)
}

func TestReplaceKeepsOldOnRejectedUpload(t *testing.T) {
	p, store, _ := newLocalPipeline(t)
	ctx := context.Background()

	oldURL, err := p.Process(ctx, asset.ProfilePhoto, FromBytes("a.png", encodeImage(t, imaging.PNG)), AvatarMaxBytes)
	require.NoError(t, err)
	_, err = p.Replace(ctx, asset.ProfilePhoto, oldURL, FromBytes("b.png", pngHeader(40000, 40000)), AvatarMaxBytes)
	assert.True(t, apperr.Is(err, apperr.KindUnsupportedMedia))

	newURL, err := p.Replace(ctx, asset.ProfilePhoto, oldURL, FromBytes("c.jpg", encodeImage(t, imaging.JPEG)), AvatarMaxBytes)
	require.NoError(t, err)
	names, err := store.List(ctx, asset.ProfilePhoto)
	require.NoError(t, err)
	newName, _ := asset.NameFromURL(newURL)
	assert.Equal(t, []string{newName}, names)
}

func TestRejectedUploadStoresNothing(t *testing.T) {
	p, store, _ := newLocalPipeline(t)
	ctx := context.Background()

	_, err := p.Process(ctx, asset.ProfilePhoto, FromBytes("a.png", encodeImage(t, imaging.PNG)), AvatarMaxBytes)
	require.NoError(t, err)
	_, err = p.Process(ctx, asset.ProfilePhoto, FromBytes("b.gif", encodeImage(t, imaging.GIF)), AvatarMaxBytes)
	assert.True(t, apperr.Is(err, apperr.KindUnsupportedMedia))

	names, err := store.List(context.Background(), asset.ProfilePhoto)
	require.NoError(t, err)
	assert.Len(t, names, 1)
}

type brokenStore struct {
	asset.Store
	putErr, delErr error
	deleted        []string
}

func (b *brokenStore) Put(ctx context.Context, cat asset.Category, r io.Reader, ext string) (string, error) {
	if b.putErr != nil {
		return "", b.putErr
	}
	return b.Store.Put(ctx, cat, r, ext)
}

func (b *brokenStore) Delete(ctx context.Context, cat asset.Category, url string) error {
	b.deleted = append(b.deleted, url)
	return b.delErr
}

func TestDiscardSwallowsDeleteFailure(t *testing.T) {
	local, err := asset.NewLocal(t.TempDir(), "http://x")
	require.NoError(t, err)
	bs := &brokenStore{Store: local, delErr: apperr.New(apperr.KindAssetStorage, "disk gone")}
	m := metrics.New()
	p := New(bs, 0, nil, m)

	p.Discard(context.Background(), asset.InternshipCertificate, "http://x/images/internship_certificate/old.jpeg")
	assert.Equal(t, []string{"http://x/images/internship_certificate/old.jpeg"}, bs.deleted)
	series, err := testutil.GatherAndCount(m.Registry(), "zeptical_asset_deletes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

func TestProcessStoreFailure(t *testing.T) {
	local, err := asset.NewLocal(t.TempDir(), "http://x")
	require.NoError(t, err)
	bs := &brokenStore{Store: local, putErr: apperr.Wrap(errors.New("eio"), apperr.KindAssetStorage, "could not store the file")}
	p := New(bs, 0, nil, nil)

	_, err = p.Process(context.Background(), asset.AchievementCertificate, FromBytes("c.png", encodeImage(t, imaging.PNG)), MaxBytes)
	assert.True(t, apperr.Is(err, apperr.KindAssetStorage))
}

func TestDiscardEmptyURL(t *testing.T) {
	local, err := asset.NewLocal(t.TempDir(), "http://x")
	require.NoError(t, err)
	bs := &brokenStore{Store: local}
	New(bs, 0, nil, nil).Discard(context.Background(), asset.ProjectPhoto, "")
	assert.Empty(t, bs.deleted)
}
