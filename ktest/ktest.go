// Package ktest implements the .ktest persisted-artifact format: a
// replayable record of one symbolic execution's concrete inputs (command
// line args, symbolic objects as concretized by a counter-example) plus,
// for states that went through the loop-fixpoint driver, the havoced
// locations that fixpoint search generalized over.
//
// Grounded on the KLEE original's KTest.h: KTest{version, args,
// symArgvs, symArgvLen, objects[], havocs[]}, KTestObject{name, bytes},
// KTestHavocedLocation{name, bytes, mask}.
package ktest

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// CurrentVersion is the newest file format version this package knows;
// Encode writes whatever version the KTest's Version field holds.
const CurrentVersion = 3

var magic = [5]byte{'K', 'T', 'E', 'S', 'T'}

// Object is one klee_make_symbolic binding's concretized value.
type Object struct {
	Name  string
	Bytes []byte
}

// HavocedLocation is one loop-fixpoint-generalized object: the
// concretized bytes the counter-example picked, plus the per-byte mask
// recording which bytes the fixpoint search determined could vary.
type HavocedLocation struct {
	Name  string
	Bytes []byte
	Mask  []uint32
}

// KTest is the full in-memory representation of a .ktest file.
type KTest struct {
	Version    uint32
	Args       []string
	SymArgvs   uint32
	SymArgvLen uint32
	Objects    []Object
	Havocs     []HavocedLocation
}

// NumBytes returns the total object byte count across Objects, the
// quantity kTest_numBytes reports.
func (k *KTest) NumBytes() int {
	n := 0
	for _, o := range k.Objects {
		n += len(o.Bytes)
	}
	return n
}

// IsKTestFile reports whether the file at path starts with the expected
// magic header, without parsing the rest.
func IsKTestFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	var got [5]byte
	if _, err := io.ReadFull(f, got[:]); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return false, nil
		}
		return false, err
	}
	return got == magic, nil
}

// FromFile reads and decodes a .ktest file.
func FromFile(path string) (*KTest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "ktest: open")
	}
	defer f.Close()
	return Decode(bufio.NewReader(f))
}

// ToFile encodes k and writes it to path.
func ToFile(k *KTest, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "ktest: create")
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := Encode(w, k); err != nil {
		return err
	}
	return w.Flush()
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func writeString(w io.Writer, s string) error {
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := writeUint32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// Encode writes k to w in the .ktest binary format.
func Encode(w io.Writer, k *KTest) error {
	if _, err := w.Write(magic[:]); err != nil {
		return errors.Wrap(err, "ktest: write magic")
	}
	if err := writeUint32(w, k.Version); err != nil {
		return errors.Wrap(err, "ktest: write version")
	}
	if err := writeUint32(w, uint32(len(k.Args))); err != nil {
		return errors.Wrap(err, "ktest: write numArgs")
	}
	for _, a := range k.Args {
		if err := writeString(w, a); err != nil {
			return errors.Wrap(err, "ktest: write arg")
		}
	}
	if err := writeUint32(w, k.SymArgvs); err != nil {
		return err
	}
	if err := writeUint32(w, k.SymArgvLen); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(k.Objects))); err != nil {
		return errors.Wrap(err, "ktest: write numObjects")
	}
	for _, o := range k.Objects {
		if err := writeString(w, o.Name); err != nil {
			return err
		}
		if err := writeBytes(w, o.Bytes); err != nil {
			return err
		}
	}
	if err := writeUint32(w, uint32(len(k.Havocs))); err != nil {
		return errors.Wrap(err, "ktest: write numHavocs")
	}
	for _, h := range k.Havocs {
		if err := writeString(w, h.Name); err != nil {
			return err
		}
		if err := writeBytes(w, h.Bytes); err != nil {
			return err
		}
		if err := writeUint32(w, uint32(len(h.Mask))); err != nil {
			return err
		}
		for _, m := range h.Mask {
			if err := writeUint32(w, m); err != nil {
				return err
			}
		}
	}
	return nil
}

// Decode reads a .ktest file body (magic included) from r.
func Decode(r io.Reader) (*KTest, error) {
	var got [5]byte
	if _, err := io.ReadFull(r, got[:]); err != nil {
		return nil, errors.Wrap(err, "ktest: read magic")
	}
	if got != magic {
		return nil, fmt.Errorf("ktest: bad magic %q", got)
	}
	k := &KTest{}
	var err error
	if k.Version, err = readUint32(r); err != nil {
		return nil, errors.Wrap(err, "ktest: read version")
	}
	numArgs, err := readUint32(r)
	if err != nil {
		return nil, errors.Wrap(err, "ktest: read numArgs")
	}
	k.Args = make([]string, numArgs)
	for i := range k.Args {
		if k.Args[i], err = readString(r); err != nil {
			return nil, errors.Wrap(err, "ktest: read arg")
		}
	}
	if k.SymArgvs, err = readUint32(r); err != nil {
		return nil, err
	}
	if k.SymArgvLen, err = readUint32(r); err != nil {
		return nil, err
	}
	numObjects, err := readUint32(r)
	if err != nil {
		return nil, errors.Wrap(err, "ktest: read numObjects")
	}
	k.Objects = make([]Object, numObjects)
	for i := range k.Objects {
		if k.Objects[i].Name, err = readString(r); err != nil {
			return nil, err
		}
		if k.Objects[i].Bytes, err = readBytes(r); err != nil {
			return nil, err
		}
	}
	numHavocs, err := readUint32(r)
	if err != nil {
		return nil, errors.Wrap(err, "ktest: read numHavocs")
	}
	k.Havocs = make([]HavocedLocation, numHavocs)
	for i := range k.Havocs {
		h := &k.Havocs[i]
		if h.Name, err = readString(r); err != nil {
			return nil, err
		}
		if h.Bytes, err = readBytes(r); err != nil {
			return nil, err
		}
		maskLen, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		h.Mask = make([]uint32, maskLen)
		for j := range h.Mask {
			if h.Mask[j], err = readUint32(r); err != nil {
				return nil, err
			}
		}
	}
	return k, nil
}
