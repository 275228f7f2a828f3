package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/born-ml/deepfold/internal/serialization"
	"github.com/born-ml/deepfold/internal/tensor"
)

// Metadata keys of an embedding store.
const (
	MetaModel = "model" // Backbone that produced the embeddings
	MetaLayer = "layer" // Representation layer index
)

// ErrEmbeddingNotFound reports a protein ID absent from the store.
var ErrEmbeddingNotFound = errors.New("embedding not found")

// Store serves per-protein token embeddings [tokens, dim] from a SafeTensors file.
// Tensor names are protein IDs.
//
// Raw tensor bytes are cached in a fastcache.Cache so repeated epochs read from memory;
// the store is safe for concurrent use.
type Store struct {
	reader *serialization.SafeTensorsReader
	cache  *fastcache.Cache
	model  string
	layer  int
	dim    int
	hits   atomic.Int64
	misses atomic.Int64
}

// StoreStats reports cache effectiveness.
type StoreStats struct {
	Hits        int64
	Misses      int64
	CachedBytes uint64
}

// OpenStore opens an embedding store. cacheBytes sizes the in-memory cache; 0 disables it.
func OpenStore(path string, cacheBytes int) (*Store, error) {
	reader, err := serialization.OpenSafeTensors(path)
	if err != nil {
		return nil, err
	}

	s := &Store{reader: reader, layer: -1, dim: -1}
	meta := reader.Metadata()
	s.model = meta[MetaModel]
	if v, ok := meta[MetaLayer]; ok {
		if s.layer, err = strconv.Atoi(v); err != nil {
			_ = reader.Close()
			return nil, fmt.Errorf("%s: invalid %s metadata %q: %w", path, MetaLayer, v, err)
		}
	}

	for _, name := range reader.TensorNames() {
		info, _ := reader.TensorInfo(name)
		shape := info.TensorShape()
		if len(shape) != 2 || info.DType != "F32" {
			_ = reader.Close()
			return nil, fmt.Errorf("%s: embedding %q must be F32 [tokens, dim], got %s %v", path, name, info.DType, shape)
		}
		if s.dim < 0 {
			s.dim = shape[1]
		} else if shape[1] != s.dim {
			_ = reader.Close()
			return nil, fmt.Errorf("%s: embedding %q has dim %d, expected %d", path, name, shape[1], s.dim)
		}
	}

	if cacheBytes > 0 {
		s.cache = fastcache.New(cacheBytes)
	}
	return s, nil
}

// Close releases the file and the cache.
func (s *Store) Close() error {
	if s.cache != nil {
		s.cache.Reset()
	}
	return s.reader.Close()
}

// Model returns the backbone name recorded in the store ("" if absent).
func (s *Store) Model() string { return s.model }

// Layer returns the representation layer recorded in the store (-1 if absent).
func (s *Store) Layer() int { return s.layer }

// Dim returns the embedding dimension (-1 for an empty store).
func (s *Store) Dim() int { return s.dim }

// IDs returns the protein IDs in sorted order.
func (s *Store) IDs() []string { return s.reader.TensorNames() }

// Has reports whether id is in the store.
func (s *Store) Has(id string) bool {
	_, err := s.reader.TensorInfo(id)
	return err == nil
}

// Tokens returns the number of token rows stored for id.
func (s *Store) Tokens(id string) (int, error) {
	info, err := s.reader.TensorInfo(id)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrEmbeddingNotFound, id)
	}
	return info.TensorShape()[0], nil
}

// Embedding returns the [tokens, dim] embedding of id.
func (s *Store) Embedding(id string) (*tensor.RawTensor, error) {
	info, err := s.reader.TensorInfo(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEmbeddingNotFound, id)
	}

	var data []byte
	if s.cache != nil {
		data = s.cache.GetBig(nil, []byte(id))
	}
	if len(data) > 0 || info.Size() == 0 {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
		if data, err = s.reader.ReadTensorData(id); err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.SetBig([]byte(id), data)
		}
	}
	return serialization.DecodeTensor(info, data)
}

// Stats returns cache hit and miss counters.
func (s *Store) Stats() StoreStats {
	st := StoreStats{Hits: s.hits.Load(), Misses: s.misses.Load()}
	if s.cache != nil {
		var fs fastcache.Stats
		s.cache.UpdateStats(&fs)
		st.CachedBytes = fs.BytesSize
	}
	return st
}

// WriteStore writes embeddings keyed by protein ID, recording the backbone and layer.
func WriteStore(path, model string, layer int, embeddings map[string]*tensor.RawTensor) error {
	return serialization.WriteSafeTensors(path, embeddings, map[string]string{
		MetaModel: model,
		MetaLayer: strconv.Itoa(layer),
	})
}
