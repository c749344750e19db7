package geometry

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const stlHeaderSize = 80

// WriteSTL writes m as binary STL and returns the number of bytes written.
func WriteSTL(w io.Writer, m Mesh, name string) (int64, error) {
	bw := bufio.NewWriter(w)
	var written int64

	header := make([]byte, stlHeaderSize)
	copy(header, name)
	n, err := bw.Write(header)
	written += int64(n)
	if err != nil {
		return written, err
	}

	if uint64(len(m.Triangles)) > math.MaxUint32 {
		return written, fmt.Errorf("too many triangles for stl: %d", len(m.Triangles))
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(m.Triangles))); err != nil {
		return written, err
	}
	written += 4

	var record [50]byte
	for _, tri := range m.Triangles {
		v0 := m.Positions[tri[0]]
		v1 := m.Positions[tri[1]]
		v2 := m.Positions[tri[2]]
		normal := r3.Cross(r3.Sub(v1, v0), r3.Sub(v2, v0))
		if r3.Norm(normal) > degenerateNormal {
			normal = r3.Unit(normal)
		} else {
			normal = r3.Vec{}
		}

		off := 0
		for _, v := range [...]r3.Vec{normal, v0, v1, v2} {
			for _, c := range [...]float64{v.X, v.Y, v.Z} {
				binary.LittleEndian.PutUint32(record[off:], math.Float32bits(float32(c)))
				off += 4
			}
		}
		binary.LittleEndian.PutUint16(record[off:], 0)

		n, err := bw.Write(record[:])
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, bw.Flush()
}
