package wynk

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/goccy/go-json"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/wynkjs/wynk/internal/negotiate"
)

// EncoderFunc compresses a complete response body
type EncoderFunc func(src []byte) ([]byte, error)

// ResponseHeaders is the header access the compressor needs
type ResponseHeaders interface {
	Header(key string) string
	SetHeader(key, value string)
	DelHeader(key string)
}

// Compressor is the after-handler compression hook. It never fails a request:
// encoder errors are logged and the original body is kept.
type Compressor struct {
	threshold int
	encodings []string
	encoders  map[string]EncoderFunc
	logger    *zap.Logger
}

// NewCompressor creates a compressor with gzip, br, deflate and zstd encoders
func NewCompressor(cfg CompressionConfig, logger *zap.Logger) *Compressor {
	if logger == nil {
		logger = zap.NewNop()
	}
	encodings := cfg.Encodings
	if len(encodings) == 0 {
		encodings = DefaultConfig().Compression.Encodings
	}
	c := &Compressor{
		threshold: cfg.Threshold,
		encodings: make([]string, 0, len(encodings)),
		encoders:  make(map[string]EncoderFunc),
		logger:    logger,
	}
	for _, e := range encodings {
		c.encodings = append(c.encodings, strings.ToLower(strings.TrimSpace(e)))
	}

	c.encoders["gzip"] = gzipEncoder(cfg.GzipLevel, logger)
	c.encoders["br"] = brotliEncoder(cfg.BrotliQuality)
	c.encoders["deflate"] = deflateEncoder(cfg.DeflateLevel, logger)
	c.encoders["zstd"] = zstdEncoder(logger)
	return c
}

// RegisterEncoder adds or replaces the encoder for a content coding
func (c *Compressor) RegisterEncoder(name string, enc EncoderFunc) {
	c.encoders[strings.ToLower(name)] = enc
}

// Compress returns the body to send. When it compresses, it sets
// Content-Encoding and Vary and drops any Content-Length.
func (c *Compressor) Compress(acceptEncoding string, h ResponseHeaders, body []byte) []byte {
	if len(body) == 0 || h.Header("Content-Encoding") != "" {
		return body
	}
	encoding := negotiate.Select(acceptEncoding, c.encodings)
	if encoding == "" {
		return body
	}
	enc, ok := c.encoders[encoding]
	if !ok || len(body) < c.threshold {
		return body
	}

	compressed, err := enc(body)
	if err != nil {
		c.logger.Warn("compression failed, sending uncompressed body",
			zap.String("encoding", encoding),
			zap.Int("size", len(body)),
			zap.Error(err),
		)
		return body
	}
	if len(compressed) >= len(body) {
		return body
	}

	h.SetHeader("Content-Encoding", encoding)
	addVary(h, "Accept-Encoding")
	h.DelHeader("Content-Length")
	return compressed
}

func addVary(h ResponseHeaders, value string) {
	existing := h.Header("Vary")
	if existing == "" {
		h.SetHeader("Vary", value)
		return
	}
	for _, v := range strings.Split(existing, ",") {
		if strings.EqualFold(strings.TrimSpace(v), value) {
			return
		}
	}
	h.SetHeader("Vary", existing+", "+value)
}

// serializeBody renders a handler result as bytes and its default content type
func serializeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return b, "application/octet-stream", nil
	case RawJSON:
		return b, "application/json", nil
	case string:
		return []byte(b), "text/plain; charset=utf-8", nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

func encodeWith(w io.WriteCloser, buf *bytes.Buffer, src []byte) ([]byte, error) {
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

func gzipEncoder(level int, logger *zap.Logger) EncoderFunc {
	if _, err := gzip.NewWriterLevel(io.Discard, level); err != nil {
		logger.Warn("invalid gzip level, using default", zap.Int("level", level))
		level = gzip.DefaultCompression
	}
	pool := sync.Pool{New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, level)
		return w
	}}
	return func(src []byte) ([]byte, error) {
		w := pool.Get().(*gzip.Writer)
		defer pool.Put(w)
		var buf bytes.Buffer
		w.Reset(&buf)
		return encodeWith(w, &buf, src)
	}
}

func deflateEncoder(level int, logger *zap.Logger) EncoderFunc {
	if _, err := flate.NewWriter(io.Discard, level); err != nil {
		logger.Warn("invalid deflate level, using default", zap.Int("level", level))
		level = flate.DefaultCompression
	}
	pool := sync.Pool{New: func() any {
		w, _ := flate.NewWriter(io.Discard, level)
		return w
	}}
	return func(src []byte) ([]byte, error) {
		w := pool.Get().(*flate.Writer)
		defer pool.Put(w)
		var buf bytes.Buffer
		w.Reset(&buf)
		return encodeWith(w, &buf, src)
	}
}

func brotliEncoder(quality int) EncoderFunc {
	if quality < brotli.BestSpeed || quality > brotli.BestCompression {
		quality = brotli.DefaultCompression
	}
	pool := sync.Pool{New: func() any {
		return brotli.NewWriterLevel(io.Discard, quality)
	}}
	return func(src []byte) ([]byte, error) {
		w := pool.Get().(*brotli.Writer)
		defer pool.Put(w)
		var buf bytes.Buffer
		w.Reset(&buf)
		return encodeWith(w, &buf, src)
	}
}

func zstdEncoder(logger *zap.Logger) EncoderFunc {
	var (
		once sync.Once
		enc  *zstd.Encoder
		err  error
	)
	return func(src []byte) ([]byte, error) {
		once.Do(func() {
			enc, err = zstd.NewWriter(nil)
			if err != nil {
				logger.Warn("zstd encoder unavailable", zap.Error(err))
			}
		})
		if err != nil {
			return nil, err
		}
		return enc.EncodeAll(src, nil), nil
	}
}
