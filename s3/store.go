package s3

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/chunkstore"
	"github.com/hupe1980/chunkstore/npy"
	"golang.org/x/time/rate"
)

const (
	// chunkExt is appended to a chunk name to form its object key, since
	// every chunk is stored as a complete NPY file.
	chunkExt = ".npy"

	// completeObject is the zero-length sentinel marking an array as
	// fully written.
	completeObject = "complete"
)

// Store is a chunk store backed by an S3-compatible service.
//
// The full identifier of each chunk (the "chunk name") is
// "<bucket>/<path>/<idx>", where "<bucket>/<path>" names the parent
// array and "<idx>" is the chunk identifier. The corresponding object
// key is "<path>/<idx>.npy".
//
// All operations share one HTTP transport and its keep-alive connection
// pool. The store itself never retries a failed request; net/http
// retransmits idempotent requests that died on a stale connection, and
// everything else surfaces as an error kind for the caller to handle.
type Store struct {
	endpoint    string
	transport   *http.Transport
	pool        *sessionPool
	auth        Authorizer
	limiter     *rate.Limiter
	logger      *chunkstore.Logger
	metrics     chunkstore.MetricsCollector
	listMaxKeys int
	publicRead  bool
	expiryDays  int
}

var _ chunkstore.Store = (*Store)(nil)

// New creates a chunk store for the S3-compatible service at the given
// endpoint URL, e.g. "http://127.0.0.1:9000". The constructor performs
// no I/O; an unreachable endpoint surfaces on the first operation.
func New(endpoint string, optFns ...Option) (*Store, error) {
	o := applyOptions(optFns)

	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, unavailablef("endpoint %q is not an http or https URL", endpoint)
	}

	auth := o.authorizer
	if auth == nil {
		switch {
		case o.token != "" && o.haveCreds:
			return nil, authFailedf("bearer token and signing credentials are mutually exclusive")
		case o.token != "":
			if auth, err = NewBearerAuth(o.token, o.tokenDecoder); err != nil {
				return nil, err
			}
		case o.haveCreds:
			auth = NewSignedAuth(o.accessKey, o.secretKey)
		default:
			auth = NoAuth{}
		}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 0
	transport.MaxIdleConnsPerHost = o.poolSize

	return &Store{
		endpoint:  strings.TrimRight(endpoint, "/"),
		transport: transport,
		pool: newSessionPool(func() *http.Client {
			return &http.Client{Transport: transport, Timeout: o.timeout}
		}),
		auth:        auth,
		limiter:     o.limiter,
		logger:      o.logger.WithEndpoint(endpoint),
		metrics:     o.metrics,
		listMaxKeys: o.listMaxKeys,
		publicRead:  o.publicRead,
		expiryDays:  o.expiryDays,
	}, nil
}

// Close releases the idle connections held by the store's transport.
func (s *Store) Close() error {
	s.transport.CloseIdleConnections()
	return nil
}

// urlFor builds the request URL for a store path, escaping each path
// segment.
func (s *Store) urlFor(path string) string {
	segs := strings.Split(path, chunkstore.NameSep)
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return s.endpoint + "/" + strings.Join(segs, "/")
}

// do runs one operation against a pooled session, translating any
// failure into the store error kinds.
func (s *Store) do(ctx context.Context, fn func(c *http.Client) error) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return translateError(err)
		}
	}
	return translateError(s.pool.with(fn))
}

// send authorizes a fully built request and performs it. Signing runs
// here so it covers the final set of headers.
func (s *Store) send(c *http.Client, req *http.Request) (*http.Response, error) {
	if err := s.auth.AuthorizeRequest(req); err != nil {
		return nil, err
	}
	return c.Do(req)
}

// GetChunk retrieves the chunk of the named array covering the given
// slices. The stored dtype and shape must match the request exactly.
func (s *Store) GetChunk(ctx context.Context, name string, slices []chunkstore.Slice, dtype chunkstore.DType) (*chunkstore.Array, error) {
	chunkName, shape, err := chunkstore.ChunkMetadata(name, slices, dtype)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	chunk, err := s.getChunk(ctx, chunkName, shape, dtype)
	numBytes := 0
	if chunk != nil {
		numBytes = chunk.NumBytes()
	}
	s.metrics.RecordGet(numBytes, time.Since(start), err)
	s.logger.LogGet(ctx, chunkName, numBytes, err)
	if err != nil {
		return nil, err
	}
	return chunk, nil
}

func (s *Store) getChunk(ctx context.Context, chunkName string, shape []int, dtype chunkstore.DType) (*chunkstore.Array, error) {
	if err := s.auth.AuthorizePath(chunkName); err != nil {
		return nil, err
	}
	var chunk *chunkstore.Array
	err := s.do(ctx, func(c *http.Client) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.urlFor(chunkName+chunkExt), nil)
		if err != nil {
			return err
		}
		// The payload is decoded straight off the connection into the
		// array buffer, so the response must arrive unencoded.
		req.Header.Set("Accept-Encoding", "identity")
		resp, err := s.send(c, req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if err := statusToError(resp); err != nil {
			return err
		}
		if chunk, err = npy.Decode(resp.Body); err != nil {
			return err
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if chunk.DType() != dtype || !shapesEqual(chunk.Shape(), shape) {
		return nil, badChunkf("chunk %q: dtype %s and shape %v in store differ from expected dtype %s and shape %v",
			chunkName, chunk.DType(), chunk.Shape(), dtype, shape)
	}
	return chunk, nil
}

// PutChunk stores a chunk of the named array as an NPY object. The
// upload carries a Content-MD5 of the full encoding, so a payload
// corrupted in transit is rejected by the server.
func (s *Store) PutChunk(ctx context.Context, name string, slices []chunkstore.Slice, chunk *chunkstore.Array) error {
	chunkName, _, err := chunkstore.ChunkMetadataFor(name, slices, chunk)
	if err != nil {
		return err
	}
	enc, err := npy.Encode(chunk)
	if err != nil {
		return err
	}
	start := time.Now()
	err = s.putChunk(ctx, chunkName, enc)
	s.metrics.RecordPut(enc.Len(), time.Since(start), err)
	s.logger.LogPut(ctx, chunkName, enc.Len(), err)
	return err
}

func (s *Store) putChunk(ctx context.Context, chunkName string, enc npy.Encoded) error {
	if err := s.auth.AuthorizePath(chunkName); err != nil {
		return err
	}
	return s.do(ctx, func(c *http.Client) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.urlFor(chunkName+chunkExt), enc.Reader())
		if err != nil {
			return err
		}
		req.ContentLength = int64(enc.Len())
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(enc.Reader()), nil
		}
		req.Header.Set("Content-MD5", enc.ContentMD5())
		resp, err := s.send(c, req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if err := statusToError(resp); err != nil {
			return err
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	})
}

// HasChunk reports whether the chunk covering the given slices exists.
func (s *Store) HasChunk(ctx context.Context, name string, slices []chunkstore.Slice, dtype chunkstore.DType) (bool, error) {
	chunkName, _, err := chunkstore.ChunkMetadata(name, slices, dtype)
	if err != nil {
		return false, err
	}
	start := time.Now()
	found, err := s.hasObject(ctx, chunkName, chunkName+chunkExt)
	s.metrics.RecordHas(time.Since(start), err)
	s.logger.LogHas(ctx, chunkName, found, err)
	return found, err
}

// hasObject issues a HEAD request for an object key and converts a
// missing object into false rather than an error.
func (s *Store) hasObject(ctx context.Context, name, key string) (bool, error) {
	if err := s.auth.AuthorizePath(name); err != nil {
		return false, err
	}
	err := s.do(ctx, func(c *http.Client) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.urlFor(key), nil)
		if err != nil {
			return err
		}
		resp, err := s.send(c, req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		return statusToError(resp)
	})
	if errors.Is(err, chunkstore.ErrChunkNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// listBucketResult is the subset of the S3 ListObjects response the
// store consumes.
type listBucketResult struct {
	IsTruncated bool     `xml:"IsTruncated"`
	NextMarker  string   `xml:"NextMarker"`
	Keys        []string `xml:"Contents>Key"`
}

// ListChunkIDs returns the identifiers of all chunks stored for the
// named array, in lexicographic order.
func (s *Store) ListChunkIDs(ctx context.Context, name string) ([]string, error) {
	start := time.Now()
	ids, err := s.listChunkIDs(ctx, name)
	s.metrics.RecordList(len(ids), time.Since(start), err)
	s.logger.LogList(ctx, name, len(ids), err)
	return ids, err
}

func (s *Store) listChunkIDs(ctx context.Context, name string) ([]string, error) {
	if err := s.auth.AuthorizePath(name); err != nil {
		return nil, err
	}
	parts := chunkstore.SplitName(name, 2)
	if len(parts) < 2 {
		return nil, badChunkf("array name %q has no path below the bucket", name)
	}
	bucket, prefix := parts[0], parts[1]

	var keys []string
	marker := ""
	for {
		query := url.Values{}
		query.Set("prefix", prefix)
		query.Set("max-keys", strconv.Itoa(s.listMaxKeys))
		if marker != "" {
			query.Set("marker", marker)
		}
		var page listBucketResult
		err := s.do(ctx, func(c *http.Client) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.urlFor(bucket)+"?"+query.Encode(), nil)
			if err != nil {
				return err
			}
			resp, err := s.send(c, req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if err := statusToError(resp); err != nil {
				return err
			}
			page = listBucketResult{}
			return xml.NewDecoder(resp.Body).Decode(&page)
		})
		if err != nil {
			return nil, err
		}
		keys = append(keys, page.Keys...)
		if !page.IsTruncated {
			break
		}
		switch {
		case page.NextMarker != "":
			marker = page.NextMarker
		case len(keys) > 0:
			marker = keys[len(keys)-1]
		default:
			s.logger.WarnContext(ctx, "result had no keys but was marked as truncated", "array", name)
			return chunkIDsFromKeys(keys, prefix), nil
		}
	}
	return chunkIDsFromKeys(keys, prefix), nil
}

// chunkIDsFromKeys strips the array path and the extension off the
// listed object keys, dropping anything that is not a chunk.
func chunkIDsFromKeys(keys []string, prefix string) []string {
	strip := prefix + chunkstore.NameSep
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		if !strings.HasSuffix(key, chunkExt) || !strings.HasPrefix(key, strip) {
			continue
		}
		ids = append(ids, key[len(strip):len(key)-len(chunkExt)])
	}
	return ids
}

// CreateArray creates the bucket holding the named array. A bucket that
// already exists is not an error. The configured public-read policy and
// expiry lifecycle, if any, are attached after creation.
func (s *Store) CreateArray(ctx context.Context, name string) error {
	err := s.createArray(ctx, name)
	s.logger.LogCreateArray(ctx, name, err)
	return err
}

func (s *Store) createArray(ctx context.Context, name string) error {
	if err := s.auth.AuthorizePath(name); err != nil {
		return err
	}
	bucket := chunkstore.SplitName(name, 2)[0]
	err := s.do(ctx, func(c *http.Client) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.urlFor(bucket), nil)
		if err != nil {
			return err
		}
		resp, err := s.send(c, req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		// 409 means the bucket already exists, which is fine.
		if resp.StatusCode == http.StatusConflict {
			return nil
		}
		return statusToError(resp)
	})
	if err != nil {
		return err
	}
	if s.publicRead {
		policy, err := publicReadPolicy(bucket)
		if err != nil {
			return translateError(err)
		}
		if err := s.putRaw(ctx, s.urlFor(bucket)+"?policy", policy, ""); err != nil {
			return err
		}
	}
	if s.expiryDays > 0 {
		lifecycle, err := expiryLifecycle(s.expiryDays)
		if err != nil {
			return translateError(err)
		}
		// The lifecycle subresource requires a Content-MD5.
		if err := s.putRaw(ctx, s.urlFor(bucket)+"?lifecycle", lifecycle, contentMD5(lifecycle)); err != nil {
			return err
		}
	}
	return nil
}

// putRaw uploads a small body, used for bucket subresources and the
// completion sentinel.
func (s *Store) putRaw(ctx context.Context, u string, body []byte, md5 string) error {
	return s.do(ctx, func(c *http.Client) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(body))
		if err != nil {
			return err
		}
		if md5 != "" {
			req.Header.Set("Content-MD5", md5)
		}
		resp, err := s.send(c, req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if err := statusToError(resp); err != nil {
			return err
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	})
}

// MarkComplete writes the zero-length completion sentinel for the named
// array, creating the bucket if needed.
func (s *Store) MarkComplete(ctx context.Context, name string) error {
	if err := s.CreateArray(ctx, name); err != nil {
		return err
	}
	return s.putRaw(ctx, s.urlFor(chunkstore.JoinName(name, completeObject)), nil, "")
}

// IsComplete reports whether the named array carries the completion
// sentinel.
func (s *Store) IsComplete(ctx context.Context, name string) (bool, error) {
	return s.hasObject(ctx, name, chunkstore.JoinName(name, completeObject))
}

func shapesEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
