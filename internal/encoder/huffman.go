package encoder

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// JPEG markers read or written by optimizeHuffman.
const (
	markerSOI  = 0xd8
	markerSOF0 = 0xc0
	markerDHT  = 0xc4
	markerSOS  = 0xda
	markerDRI  = 0xdd
)

var errShortScan = errors.New("jpeg: scan data ends early")

// optimizeHuffman rewrites a baseline JPEG written by image/jpeg so that its
// Huffman tables are built from the image's own symbol frequencies instead
// of the generic Annex K tables. Quantized coefficients are copied symbol for
// symbol, so decoders produce exactly the same pixels.
//
// Only the subset image/jpeg emits is accepted: one SOF0 frame, one scan,
// no restart intervals.
func optimizeHuffman(src []byte) ([]byte, error) {
	if len(src) < 4 || src[0] != 0xff || src[1] != markerSOI {
		return nil, fmt.Errorf("jpeg: missing SOI")
	}

	var (
		out    = make([]byte, 0, len(src))
		frame  *sofInfo
		tables = map[uint8]*huffDecoder{} // class<<4 | id
	)
	out = append(out, 0xff, markerSOI)

	pos := 2
	for {
		if pos+4 > len(src) || src[pos] != 0xff {
			return nil, fmt.Errorf("jpeg: bad marker at offset %d", pos)
		}
		marker := src[pos+1]
		length := int(binary.BigEndian.Uint16(src[pos+2:]))
		end := pos + 2 + length
		if length < 2 || end > len(src) {
			return nil, fmt.Errorf("jpeg: segment %#x overruns input", marker)
		}
		payload := src[pos+4 : end]

		switch {
		case marker == markerDHT:
			if err := parseDHT(payload, tables); err != nil {
				return nil, err
			}
		case marker == markerSOF0:
			f, err := parseSOF(payload)
			if err != nil {
				return nil, err
			}
			frame = f
			out = append(out, src[pos:end]...)
		case marker >= 0xc1 && marker <= 0xcf && marker != 0xc8 && marker != 0xcc,
			marker == markerDRI:
			return nil, fmt.Errorf("jpeg: unsupported marker %#x", marker)
		case marker == markerSOS:
			if frame == nil {
				return nil, fmt.Errorf("jpeg: scan before frame header")
			}
			scan, err := parseSOS(payload, frame)
			if err != nil {
				return nil, err
			}
			dataEnd := scanEnd(src, end)
			syms, err := readScan(unstuff(src[end:dataEnd]), frame, scan, tables)
			if err != nil {
				return nil, err
			}

			enc := buildEncoders(syms)
			out = appendDHT(out, enc)
			out = append(out, src[pos:end]...)
			out = appendScan(out, syms, enc)
			return append(out, src[dataEnd:]...), nil
		default:
			out = append(out, src[pos:end]...)
		}
		pos = end
	}
}

type sofComponent struct {
	id   uint8
	h, v int
}

type sofInfo struct {
	width, height int
	comps         []sofComponent
	hmax, vmax    int
}

type scanComponent struct {
	h, v   int
	dc, ac uint8 // table keys: class<<4 | id
}

func parseSOF(p []byte) (*sofInfo, error) {
	if len(p) < 6 {
		return nil, fmt.Errorf("jpeg: short SOF")
	}
	n := int(p[5])
	if n == 0 || len(p) < 6+3*n {
		return nil, fmt.Errorf("jpeg: bad SOF component count %d", n)
	}
	f := &sofInfo{
		height: int(binary.BigEndian.Uint16(p[1:])),
		width:  int(binary.BigEndian.Uint16(p[3:])),
		hmax:   1,
		vmax:   1,
	}
	for i := 0; i < n; i++ {
		c := p[6+3*i:]
		sc := sofComponent{id: c[0], h: int(c[1] >> 4), v: int(c[1] & 0x0f)}
		if sc.h == 0 || sc.v == 0 {
			return nil, fmt.Errorf("jpeg: zero sampling factor")
		}
		f.hmax = max(f.hmax, sc.h)
		f.vmax = max(f.vmax, sc.v)
		f.comps = append(f.comps, sc)
	}
	return f, nil
}

func parseSOS(p []byte, f *sofInfo) ([]scanComponent, error) {
	if len(p) < 1 {
		return nil, fmt.Errorf("jpeg: short SOS")
	}
	n := int(p[0])
	if n == 0 || len(p) < 1+2*n+3 {
		return nil, fmt.Errorf("jpeg: bad SOS component count %d", n)
	}
	scan := make([]scanComponent, 0, n)
	for i := 0; i < n; i++ {
		id, sel := p[1+2*i], p[2+2*i]
		var fc *sofComponent
		for j := range f.comps {
			if f.comps[j].id == id {
				fc = &f.comps[j]
			}
		}
		if fc == nil {
			return nil, fmt.Errorf("jpeg: scan references unknown component %d", id)
		}
		scan = append(scan, scanComponent{h: fc.h, v: fc.v, dc: sel >> 4, ac: 1<<4 | sel&0x0f})
	}
	return scan, nil
}

func parseDHT(p []byte, tables map[uint8]*huffDecoder) error {
	for len(p) > 0 {
		if len(p) < 17 {
			return fmt.Errorf("jpeg: short DHT")
		}
		key := p[0]
		var counts [16]byte
		copy(counts[:], p[1:17])
		total := 0
		for _, c := range counts {
			total += int(c)
		}
		if len(p) < 17+total {
			return fmt.Errorf("jpeg: DHT values overrun segment")
		}
		tables[key] = newHuffDecoder(counts, p[17:17+total])
		p = p[17+total:]
	}
	return nil
}

// scanEnd returns the offset of the first marker after entropy-coded data
// starting at from.
func scanEnd(src []byte, from int) int {
	for i := from; i+1 < len(src); i++ {
		if src[i] == 0xff && src[i+1] != 0x00 {
			return i
		}
	}
	return len(src)
}

// unstuff drops the 0x00 byte that follows every 0xff in entropy data.
func unstuff(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		out = append(out, data[i])
		if data[i] == 0xff {
			i++
		}
	}
	return out
}

// huffDecoder decodes canonical Huffman codes (ITU T.81 F.2.2.3).
type huffDecoder struct {
	maxcode [17]int32
	mincode [17]int32
	valptr  [17]int
	vals    []byte
}

func newHuffDecoder(counts [16]byte, vals []byte) *huffDecoder {
	d := &huffDecoder{vals: vals}
	code, k := int32(0), 0
	for l := 1; l <= 16; l++ {
		n := int(counts[l-1])
		d.maxcode[l] = -1
		if n > 0 {
			d.valptr[l] = k
			d.mincode[l] = code
			code += int32(n)
			k += n
			d.maxcode[l] = code - 1
		}
		code <<= 1
	}
	return d
}

type bitReader struct {
	data []byte
	pos  int
	bit  uint
}

func (r *bitReader) readBit() (int32, error) {
	if r.pos >= len(r.data) {
		return 0, errShortScan
	}
	b := int32(r.data[r.pos]>>(7-r.bit)) & 1
	if r.bit++; r.bit == 8 {
		r.bit = 0
		r.pos++
	}
	return b, nil
}

func (r *bitReader) readBits(n uint8) (uint16, error) {
	var v uint16
	for i := uint8(0); i < n; i++ {
		b, err := r.readBit()
		if err != nil {
			return 0, err
		}
		v = v<<1 | uint16(b)
	}
	return v, nil
}

func (r *bitReader) decode(d *huffDecoder) (uint8, error) {
	var code int32
	for l := 1; l <= 16; l++ {
		b, err := r.readBit()
		if err != nil {
			return 0, err
		}
		code = code<<1 | b
		if d.maxcode[l] >= 0 && code <= d.maxcode[l] {
			return d.vals[d.valptr[l]+int(code-d.mincode[l])], nil
		}
	}
	return 0, fmt.Errorf("jpeg: invalid Huffman code")
}

// symbol is one Huffman-coded value plus the raw bits that follow it.
type symbol struct {
	table uint8
	value uint8
	nbits uint8
	bits  uint16
}

// readScan walks every block of the scan and returns its symbol stream.
func readScan(data []byte, f *sofInfo, scan []scanComponent, tables map[uint8]*huffDecoder) ([]symbol, error) {
	for _, sc := range scan {
		if tables[sc.dc] == nil || tables[sc.ac] == nil {
			return nil, fmt.Errorf("jpeg: scan uses an undefined Huffman table")
		}
	}

	// A single-component scan is not interleaved: one block per MCU,
	// covering only that component's own extent.
	var mcus int
	perMCU := make([]int, len(scan))
	if len(scan) == 1 {
		sc := scan[0]
		cw := ceilDiv(f.width*sc.h, f.hmax)
		ch := ceilDiv(f.height*sc.v, f.vmax)
		mcus = ceilDiv(cw, 8) * ceilDiv(ch, 8)
		perMCU[0] = 1
	} else {
		mcus = ceilDiv(f.width, 8*f.hmax) * ceilDiv(f.height, 8*f.vmax)
		for i, sc := range scan {
			perMCU[i] = sc.h * sc.v
		}
	}

	r := &bitReader{data: data}
	syms := make([]symbol, 0, mcus*8)
	read := func(table uint8) (uint8, error) {
		v, err := r.decode(tables[table])
		if err != nil {
			return 0, err
		}
		nbits := v & 0x0f
		if table>>4 == 0 {
			nbits = v
		}
		if nbits > 15 {
			return 0, fmt.Errorf("jpeg: DC category %d out of range", nbits)
		}
		bits, err := r.readBits(nbits)
		if err != nil {
			return 0, err
		}
		syms = append(syms, symbol{table: table, value: v, nbits: nbits, bits: bits})
		return v, nil
	}

	for m := 0; m < mcus; m++ {
		for i, sc := range scan {
			for b := 0; b < perMCU[i]; b++ {
				if _, err := read(sc.dc); err != nil {
					return nil, err
				}
				for k := 1; k < 64; {
					rs, err := read(sc.ac)
					if err != nil {
						return nil, err
					}
					run, size := int(rs>>4), rs&0x0f
					if size == 0 {
						if run != 15 {
							break // EOB
						}
						k += 16
						continue
					}
					k += run + 1
				}
			}
		}
	}
	return syms, nil
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

// huffEncoder is an optimized table: its DHT description and the code for
// every symbol.
type huffEncoder struct {
	key    uint8
	counts [16]byte
	vals   []byte
	code   [256]uint16
	size   [256]uint8
}

// buildEncoders derives one optimal table per table key in use, in key order.
func buildEncoders(syms []symbol) []*huffEncoder {
	freq := map[uint8]*[257]int64{}
	for _, s := range syms {
		f := freq[s.table]
		if f == nil {
			f = new([257]int64)
			freq[s.table] = f
		}
		f[s.value]++
	}

	var encs []*huffEncoder
	for key := 0; key < 256; key++ {
		f, ok := freq[uint8(key)]
		if !ok {
			continue
		}
		e := &huffEncoder{key: uint8(key)}
		e.counts, e.vals = optimalTable(f)

		code, k := uint16(0), 0
		for l := 1; l <= 16; l++ {
			for n := 0; n < int(e.counts[l-1]); n++ {
				v := e.vals[k]
				e.code[v], e.size[v] = code, uint8(l)
				code++
				k++
			}
			code <<= 1
		}
		encs = append(encs, e)
	}
	return encs
}

// optimalTable builds length-limited Huffman code lengths from symbol
// frequencies (ITU T.81 K.2). Symbol 256 is a reserved placeholder that
// keeps any real code from being all ones.
func optimalTable(f *[257]int64) (counts [16]byte, vals []byte) {
	freq := *f
	freq[256] = 1

	var codesize [257]int
	var others [257]int
	for i := range others {
		others[i] = -1
	}

	for {
		c1, c2 := -1, -1
		var v int64 = 1 << 62
		for i := 0; i <= 256; i++ {
			if freq[i] != 0 && freq[i] <= v {
				v, c1 = freq[i], i
			}
		}
		v = 1 << 62
		for i := 0; i <= 256; i++ {
			if freq[i] != 0 && freq[i] <= v && i != c1 {
				v, c2 = freq[i], i
			}
		}
		if c2 < 0 {
			break
		}

		freq[c1] += freq[c2]
		freq[c2] = 0

		codesize[c1]++
		for others[c1] >= 0 {
			c1 = others[c1]
			codesize[c1]++
		}
		others[c1] = c2
		codesize[c2]++
		for others[c2] >= 0 {
			c2 = others[c2]
			codesize[c2]++
		}
	}

	var bits [33]int
	for i := 0; i <= 256; i++ {
		if codesize[i] > 0 {
			bits[codesize[i]]++
		}
	}

	for i := 32; i > 16; i-- {
		for bits[i] > 0 {
			j := i - 2
			for bits[j] == 0 {
				j--
			}
			bits[i] -= 2
			bits[i-1]++
			bits[j+1] += 2
			bits[j]--
		}
	}
	i := 16
	for bits[i] == 0 {
		i--
	}
	bits[i]-- // drop the reserved symbol

	for l := 1; l <= 16; l++ {
		counts[l-1] = byte(bits[l])
	}
	for size := 1; size <= 32; size++ {
		for s := 0; s < 256; s++ {
			if codesize[s] == size {
				vals = append(vals, byte(s))
			}
		}
	}
	return counts, vals
}

func appendDHT(out []byte, encs []*huffEncoder) []byte {
	length := 2
	for _, e := range encs {
		length += 17 + len(e.vals)
	}
	out = append(out, 0xff, markerDHT, byte(length>>8), byte(length))
	for _, e := range encs {
		out = append(out, e.key)
		out = append(out, e.counts[:]...)
		out = append(out, e.vals...)
	}
	return out
}

type bitWriter struct {
	out []byte
	acc uint32
	n   uint
}

func (w *bitWriter) write(v uint32, size uint8) {
	if size == 0 {
		return
	}
	w.acc = w.acc<<size | v&(1<<size-1)
	w.n += uint(size)
	for w.n >= 8 {
		b := byte(w.acc >> (w.n - 8))
		w.out = append(w.out, b)
		if b == 0xff {
			w.out = append(w.out, 0x00)
		}
		w.n -= 8
	}
	w.acc &= 1<<w.n - 1
}

// flush pads the final byte with one bits.
func (w *bitWriter) flush() {
	if w.n > 0 {
		pad := uint8(8 - w.n)
		w.write(1<<pad-1, pad)
	}
}

func appendScan(out []byte, syms []symbol, encs []*huffEncoder) []byte {
	var byKey [256]*huffEncoder
	for _, e := range encs {
		byKey[e.key] = e
	}
	w := &bitWriter{out: out}
	for _, s := range syms {
		e := byKey[s.table]
		w.write(uint32(e.code[s.value]), e.size[s.value])
		w.write(uint32(s.bits), s.nbits)
	}
	w.flush()
	return w.out
}
