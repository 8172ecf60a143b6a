package ledger

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/jathurchan/namereg/logger"
	"github.com/jathurchan/namereg/types"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// errTornFrame marks a frame cut short by a crash mid-write.
var errTornFrame = errors.New("torn frame")

// FileJournal persists entries to a single append-only file. Each entry is
// framed as:
//
//	[4 bytes] big-endian payload length
//	[4 bytes] big-endian CRC32C of the payload
//	[payload] protobuf-wire encoded Entry
//
// A torn final frame left by a crash is truncated when the journal is opened.
type FileJournal struct {
	mu           sync.Mutex
	path         string
	file         *os.File
	size         int64
	lastIndex    types.Index
	syncOnAppend bool
	closed       bool
	logger       logger.Logger
}

// OpenFileJournal opens or creates the journal at path and recovers its tail.
func OpenFileJournal(path string, syncOnAppend bool, log logger.Logger) (*FileJournal, error) {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), ownRWXOthRX); err != nil {
		return nil, fmt.Errorf("%w: create journal directory: %v", ErrJournalIO, err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, ownRWOthR)
	if err != nil {
		return nil, fmt.Errorf("%w: open journal: %v", ErrJournalIO, err)
	}

	j := &FileJournal{
		path:         path,
		file:         f,
		syncOnAppend: syncOnAppend,
		logger:       log.WithComponent("journal"),
	}
	if err := j.recover(); err != nil {
		_ = f.Close()
		return nil, err
	}

	j.logger.Infow("Journal opened", "path", path, "lastIndex", j.lastIndex, "size", j.size)
	return j, nil
}

// recover scans every frame, truncating a torn or unverifiable final frame.
func (j *FileJournal) recover() error {
	info, err := j.file.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat journal: %v", ErrJournalIO, err)
	}
	fileSize := info.Size()

	r := bufio.NewReader(j.file)
	var good int64
	var last types.Index
	for {
		payload, frameLen, err := readFrame(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			tail := good+frameLen >= fileSize
			if !tail || !(errors.Is(err, errTornFrame) || errors.Is(err, ErrCorruptedJournal)) {
				return fmt.Errorf("recover journal at offset %d: %w", good, err)
			}
			j.logger.Warnw("Truncating torn journal tail",
				"offset", good, "discardedBytes", fileSize-good, "error", err)
			if err := j.file.Truncate(good); err != nil {
				return fmt.Errorf("%w: truncate journal: %v", ErrJournalIO, err)
			}
			break
		}

		entry, err := UnmarshalEntry(payload)
		if err != nil {
			return fmt.Errorf("recover journal at offset %d: %w", good, err)
		}
		if err := checkContiguous(last, entry.Index); err != nil {
			return fmt.Errorf("recover journal at offset %d: %w", good, err)
		}
		last = entry.Index
		good += frameLen
	}

	if _, err := j.file.Seek(good, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek journal: %v", ErrJournalIO, err)
	}
	j.size = good
	j.lastIndex = last
	return nil
}

// readFrame reads one frame. It returns io.EOF only at a clean frame
// boundary; frameLen is the number of bytes the frame claims to occupy.
func readFrame(r io.Reader) (payload []byte, frameLen int64, err error) {
	var header [frameHeaderSize]byte
	n, err := io.ReadFull(r, header[:])
	if err == io.EOF {
		return nil, 0, io.EOF
	}
	if err != nil {
		return nil, int64(n), fmt.Errorf("%w: header: %v", errTornFrame, err)
	}

	length := binary.BigEndian.Uint32(header[0:4])
	sum := binary.BigEndian.Uint32(header[4:8])
	frameLen = frameHeaderSize + int64(length)
	if length == 0 || length > maxEntrySizeBytes {
		return nil, frameLen, fmt.Errorf("%w: frame length %d (max %d)", ErrCorruptedJournal, length, maxEntrySizeBytes)
	}

	payload = make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, frameLen, fmt.Errorf("%w: payload: %v", errTornFrame, err)
	}
	if crc32.Checksum(payload, castagnoli) != sum {
		return nil, frameLen, fmt.Errorf("%w: checksum mismatch", ErrCorruptedJournal)
	}
	return payload, frameLen, nil
}

func (j *FileJournal) Append(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	if err := checkContiguous(j.lastIndex, entry.Index); err != nil {
		return err
	}

	payload := MarshalEntry(entry)
	if len(payload) > maxEntrySizeBytes {
		return fmt.Errorf("%w: entry of %d bytes exceeds limit", ErrInvalidTransaction, len(payload))
	}
	frame := make([]byte, frameHeaderSize, frameHeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame[0:4], uint32(len(payload)))
	binary.BigEndian.PutUint32(frame[4:8], crc32.Checksum(payload, castagnoli))
	frame = append(frame, payload...)

	if _, err := j.file.Write(frame); err != nil {
		j.rollback()
		return fmt.Errorf("%w: write entry %d: %v", ErrJournalIO, entry.Index, err)
	}
	if j.syncOnAppend {
		if err := j.file.Sync(); err != nil {
			j.rollback()
			return fmt.Errorf("%w: sync entry %d: %v", ErrJournalIO, entry.Index, err)
		}
	}

	j.size += int64(len(frame))
	j.lastIndex = entry.Index
	return nil
}

// rollback cuts a partially written frame off the end of the file.
func (j *FileJournal) rollback() {
	if err := j.file.Truncate(j.size); err != nil {
		j.logger.Errorw("Rollback failed", "offset", j.size, "error", err)
		return
	}
	if _, err := j.file.Seek(j.size, io.SeekStart); err != nil {
		j.logger.Errorw("Seek after rollback failed", "offset", j.size, "error", err)
		return
	}
	j.logger.Warnw("Rolled back partial journal write", "offset", j.size)
}

func (j *FileJournal) ForEach(ctx context.Context, fn func(Entry) error) error {
	j.mu.Lock()
	size := j.size
	j.mu.Unlock()

	f, err := os.Open(j.path)
	if err != nil {
		return fmt.Errorf("%w: open journal for read: %v", ErrJournalIO, err)
	}
	defer f.Close()

	r := bufio.NewReader(io.LimitReader(f, size))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, _, err := readFrame(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		entry, err := UnmarshalEntry(payload)
		if err != nil {
			return err
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
}

func (j *FileJournal) LastIndex() types.Index {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastIndex
}

func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	if err := j.file.Sync(); err != nil {
		_ = j.file.Close()
		return fmt.Errorf("%w: sync on close: %v", ErrJournalIO, err)
	}
	return j.file.Close()
}
