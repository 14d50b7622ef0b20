package chunk

import "errors"

var (
	ErrInvalidSize        = errors.New("invalid resource size (must be greater than zero)")
	ErrChunkTempDirCreate = errors.New("failed to create chunk temp directory")
	ErrRecordCorrupt      = errors.New("chunk progress record is corrupt")
)
