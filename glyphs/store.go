// Package glyphs persists custom LCD glyphs in flash using LittleFS so they
// can be restored into the controller's CGRAM at boot.
package glyphs

import (
	"errors"
	"os"
	"path"
	"strconv"
	"strings"

	"tinygo.org/x/tinyfs"
	"tinygo.org/x/tinyfs/littlefs"
)

const (
	glyphDir   = "/glyphs"
	glyphExt   = ".bin"
	tempSuffix = ".tmp"
	rowCount   = 8
)

// Slots is the number of glyph slots, matching the LCD driver.
const Slots = 16

var (
	ErrNotFound     = errors.New("glyph not found")
	ErrInvalidSlot  = errors.New("invalid glyph slot")
	ErrInvalidGlyph = errors.New("invalid glyph data")
)

// Smile is a 5x8 smiley face.
var Smile = [rowCount]byte{
	0b00001110,
	0b00011111,
	0b00010101,
	0b00011111,
	0b00010001,
	0b00010001,
	0b00011011,
	0b00001110,
}

// Loader accepts glyphs, typically *lcd.Device.
type Loader interface {
	SetCustomGlyph(index int, rows [8]byte) error
}

// Store keeps one file per glyph slot.
type Store struct {
	fs      *littlefs.LFS
	mounted bool
}

// Open mounts the filesystem on blockDev. If format is true and mount fails,
// the device is formatted first. Temporary files left by an interrupted Save
// are removed.
func Open(blockDev tinyfs.BlockDevice, format bool) (*Store, error) {
	lfs := littlefs.New(blockDev)
	lfs.Configure(&littlefs.Config{
		CacheSize:     512,
		LookaheadSize: 128,
	})

	if err := lfs.Mount(); err != nil {
		if !format {
			return nil, err
		}
		if err := lfs.Format(); err != nil {
			return nil, err
		}
		if err := lfs.Mount(); err != nil {
			return nil, err
		}
	}

	s := &Store{fs: lfs, mounted: true}
	s.removeTemps()
	return s, nil
}

// Close unmounts the filesystem.
func (s *Store) Close() error {
	if !s.mounted {
		return nil
	}
	s.mounted = false
	return s.fs.Unmount()
}

// Save writes rows to slot, replacing any previous glyph.
func (s *Store) Save(slot int, rows [rowCount]byte) error {
	if slot < 0 || slot >= Slots {
		return ErrInvalidSlot
	}
	if err := s.fs.Mkdir(glyphDir, 0755); err != nil && !isExist(err) {
		return err
	}
	return s.atomicWrite(slotPath(slot), rows[:])
}

// Load reads the glyph in slot.
func (s *Store) Load(slot int) ([rowCount]byte, error) {
	var rows [rowCount]byte
	if slot < 0 || slot >= Slots {
		return rows, ErrInvalidSlot
	}

	f, err := s.fs.Open(slotPath(slot))
	if err != nil {
		if isNotExist(err) {
			return rows, ErrNotFound
		}
		return rows, err
	}
	defer f.Close()

	n, err := f.Read(rows[:])
	if err != nil {
		return rows, err
	}
	if n != rowCount {
		return rows, ErrInvalidGlyph
	}
	return rows, nil
}

// Delete removes the glyph in slot.
func (s *Store) Delete(slot int) error {
	if slot < 0 || slot >= Slots {
		return ErrInvalidSlot
	}
	if err := s.fs.Remove(slotPath(slot)); err != nil {
		if isNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// List returns the occupied slots in directory order.
func (s *Store) List() ([]int, error) {
	entries, err := s.readDir()
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var slots []int
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, glyphExt) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(name, glyphExt))
		if err != nil || n < 0 || n >= Slots {
			continue
		}
		slots = append(slots, n)
	}
	return slots, nil
}

// Apply loads every stored glyph into dst and returns how many were loaded.
func (s *Store) Apply(dst Loader) (int, error) {
	slots, err := s.List()
	if err != nil {
		return 0, err
	}
	loaded := 0
	for _, slot := range slots {
		rows, err := s.Load(slot)
		if err != nil {
			return loaded, errors.New("glyphs: load slot " + strconv.Itoa(slot) + ":" + err.Error())
		}
		if err := dst.SetCustomGlyph(slot, rows); err != nil {
			return loaded, err
		}
		loaded++
	}
	return loaded, nil
}

func (s *Store) readDir() ([]os.FileInfo, error) {
	f, err := s.fs.Open(glyphDir)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !f.IsDir() {
		return nil, errors.New("not a directory")
	}
	return f.Readdir(-1)
}

func (s *Store) removeTemps() {
	entries, err := s.readDir()
	if err != nil {
		return
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), tempSuffix) {
			s.fs.Remove(path.Join(glyphDir, entry.Name()))
		}
	}
}

// atomicWrite writes to a temporary file and renames it over filepath.
func (s *Store) atomicWrite(filepath string, data []byte) error {
	tempPath := filepath + tempSuffix
	s.fs.Remove(tempPath)

	f, err := s.fs.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		s.fs.Remove(tempPath)
		return err
	}
	if syncer, ok := f.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			f.Close()
			s.fs.Remove(tempPath)
			return err
		}
	}
	if err := f.Close(); err != nil {
		s.fs.Remove(tempPath)
		return err
	}

	// LittleFS rename doesn't replace an existing file.
	s.fs.Remove(filepath)
	if err := s.fs.Rename(tempPath, filepath); err != nil {
		s.fs.Remove(tempPath)
		return err
	}
	return nil
}

func slotPath(slot int) string {
	return path.Join(glyphDir, strconv.Itoa(slot)+glyphExt)
}

// LittleFS errors don't always satisfy os.IsExist/os.IsNotExist.
func isExist(err error) bool {
	return os.IsExist(err) || strings.Contains(err.Error(), "already exists")
}

func isNotExist(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "No directory entry")
}
