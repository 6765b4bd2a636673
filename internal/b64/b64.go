// This file is part of fitbitd.
//
// fitbitd is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// fitbitd is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with fitbitd.  If not, see <http://www.gnu.org/licenses/>.

// Package b64 implements the remote-op base64 codec the upload protocol
// uses for opCode/payloadData and for echoing op responses back to the
// server: a permissive decoder that skips any byte outside the alphabet
// (rather than rejecting it), and an encoder whose output is always padded
// to a multiple of 4 characters.
package b64

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var decodeTable = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		t[alphabet[i]] = int8(i)
	}
	return t
}()

// Encode renders data as standard base64, padded with '=' to a multiple of
// 4 characters.
func Encode(data []byte) string {
	out := make([]byte, 0, (len(data)+2)/3*4)
	for i := 0; i < len(data); i += 3 {
		n := uint32(data[i]) << 16
		have2, have3 := i+1 < len(data), i+2 < len(data)
		if have2 {
			n |= uint32(data[i+1]) << 8
		}
		if have3 {
			n |= uint32(data[i+2])
		}
		out = append(out, alphabet[(n>>18)&0x3F], alphabet[(n>>12)&0x3F])
		if have2 {
			out = append(out, alphabet[(n>>6)&0x3F])
		} else {
			out = append(out, '=')
		}
		if have3 {
			out = append(out, alphabet[n&0x3F])
		} else {
			out = append(out, '=')
		}
	}
	return string(out)
}

// Decode reassembles the base64-encoded bytes in s, silently skipping any
// byte that is not part of the alphabet (including padding).
func Decode(s string) []byte {
	var out []byte
	var dlast int8
	phase := 0
	for i := 0; i < len(s); i++ {
		d := decodeTable[s[i]]
		if d == -1 {
			continue
		}
		switch phase {
		case 0:
			phase = 1
		case 1:
			out = append(out, byte(dlast<<2)|byte((d&0x30)>>4))
			phase = 2
		case 2:
			out = append(out, byte((dlast&0xF)<<4)|byte((d&0x3C)>>2))
			phase = 3
		case 3:
			out = append(out, byte((dlast&0x03)<<6)|byte(d))
			phase = 0
		}
		dlast = d
	}
	return out
}
