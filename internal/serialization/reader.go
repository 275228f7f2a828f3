package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/born-ml/deepfold/internal/tensor"
)

// SafeTensorsReader gives random access to the tensors of a SafeTensors file.
//
// ReadTensor uses ReadAt, so one reader can serve concurrent goroutines.
type SafeTensorsReader struct {
	file       *os.File
	metadata   map[string]string
	tensors    map[string]TensorInfo
	dataOffset int64
}

// OpenSafeTensors opens a SafeTensors file and parses and validates its header.
func OpenSafeTensors(path string) (*SafeTensorsReader, error) {
	//nolint:gosec // G304: path is chosen by the operator
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	r, err := newReader(file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func newReader(file *os.File) (*SafeTensorsReader, error) {
	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &rawMap); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	r := &SafeTensorsReader{
		file:       file,
		tensors:    make(map[string]TensorInfo, len(rawMap)),
		dataOffset: int64(8 + headerSize), //nolint:gosec // bounded by MaxHeaderSize
	}
	for key, value := range rawMap {
		if key == metadataKey {
			if err := json.Unmarshal(value, &r.metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
			continue
		}
		var info TensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tensor %s: %w", key, err)
		}
		r.tensors[key] = info
	}

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if err := ValidateTensorOffsets(r.tensors, stat.Size()-r.dataOffset); err != nil {
		return nil, err
	}
	return r, nil
}

// Close closes the underlying file.
func (r *SafeTensorsReader) Close() error {
	return r.file.Close()
}

// Metadata returns the "__metadata__" map (nil if absent).
func (r *SafeTensorsReader) Metadata() map[string]string {
	return r.metadata
}

// TensorNames returns all tensor names in sorted order.
func (r *SafeTensorsReader) TensorNames() []string {
	names := make([]string, 0, len(r.tensors))
	for name := range r.tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TensorInfo returns the header entry for name.
func (r *SafeTensorsReader) TensorInfo(name string) (TensorInfo, error) {
	info, ok := r.tensors[name]
	if !ok {
		return TensorInfo{}, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
	}
	return info, nil
}

// ReadTensorData reads the raw bytes of a tensor.
func (r *SafeTensorsReader) ReadTensorData(name string) ([]byte, error) {
	info, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}
	data := make([]byte, info.Size())
	if _, err := r.file.ReadAt(data, r.dataOffset+info.DataOffsets[0]); err != nil {
		return nil, fmt.Errorf("failed to read tensor %s: %w", name, err)
	}
	return data, nil
}

// ReadTensor reads a tensor into a CPU RawTensor.
func (r *SafeTensorsReader) ReadTensor(name string) (*tensor.RawTensor, error) {
	info, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}
	data, err := r.ReadTensorData(name)
	if err != nil {
		return nil, err
	}
	return DecodeTensor(info, data)
}

// ReadAll reads every tensor in the file.
func (r *SafeTensorsReader) ReadAll() (map[string]*tensor.RawTensor, error) {
	out := make(map[string]*tensor.RawTensor, len(r.tensors))
	for _, name := range r.TensorNames() {
		raw, err := r.ReadTensor(name)
		if err != nil {
			return nil, err
		}
		out[name] = raw
	}
	return out, nil
}

// DecodeTensor builds a RawTensor from a header entry and its bytes.
func DecodeTensor(info TensorInfo, data []byte) (*tensor.RawTensor, error) {
	dtype, err := dtypeFromSafeTensors(info.DType)
	if err != nil {
		return nil, err
	}
	return tensor.RawFromBytes(data, info.TensorShape(), dtype, tensor.CPU)
}
