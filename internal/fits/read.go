// Copyright (C) 2020 Jérémie Decock
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package fits

import (
	"compress/gzip"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/stats"
)

var reParser *regexp.Regexp = compileRE() // Regexp parser for FITS header lines

// Reads the first data-bearing HDU of the file with the given name
func NewImageFromFile(fileName string, id int, logWriter io.Writer) (*Image, error) {
	hdus, err:=ReadFileHDUs(fileName, logWriter)
	if err!=nil { return nil, err }
	for _,hdu:=range hdus {
		if hdu.Pixels>0 {
			hdu.ID=id
			return hdu, nil
		}
	}
	return nil, fmt.Errorf("%s: no data-bearing HDU found", fileName)
}

// Reads all HDUs from the file with the given name: the primary HDU first,
// then any IMAGE extensions. Decompresses gzip if .gz or .gzip suffix is present
func ReadFileHDUs(fileName string, logWriter io.Writer) ([]*Image, error) {
	f, err:=os.Open(fileName)
	if err!=nil { return nil, err }
	defer f.Close()

	var r io.Reader = f
	lExt:=strings.ToLower(path.Ext(fileName))
	if lExt==".gz" || lExt==".gzip" {
		r, err=gzip.NewReader(f)
		if err!=nil { return nil, err }
	}

	return ReadHDUs(r, fileName, logWriter)
}

// Reads all HDUs from the given reader until EOF
func ReadHDUs(r io.Reader, fileName string, logWriter io.Writer) ([]*Image, error) {
	hdus:=[]*Image{}
	for id:=0; ; id++ {
		hdu:=NewImage()
		hdu.ID, hdu.FileName=id, fileName
		err:=hdu.readHDU(r, id==0, logWriter)
		if err==io.EOF {
			if id==0 { return nil, fmt.Errorf("%s: empty FITS file", fileName) }
			break
		}
		if err!=nil { return nil, err }
		hdus=append(hdus, hdu)
	}
	return hdus, nil
}

func (fits *Image) PopHeaderInt32(key string) (res int32, err error) {
	if val, ok:=fits.Header.Ints[key]; ok {
		delete(fits.Header.Ints, key)
		return val, nil
	}
	return 0, fmt.Errorf("%d: FITS header does not contain key %s", fits.ID, key)
}

func (fits *Image) PopHeaderInt32OrFloat(key string) (res float32, err error) {
	if val, ok:=fits.Header.Ints[key]; ok {
		delete(fits.Header.Ints, key)
		return float32(val), nil
	} else if val, ok:=fits.Header.Floats[key]; ok {
		delete(fits.Header.Floats, key)
		return val, nil
	}
	return 0, fmt.Errorf("%d: FITS header does not contain key %s", fits.ID, key)
}

// Reads one header and data unit. Returns io.EOF if the reader is exhausted
// before the first header block
func (fits *Image) readHDU(r io.Reader, primary bool, logWriter io.Writer) (err error) {
	err=fits.Header.read(r, fits.ID, logWriter)
	if err!=nil { return err }

	// check mandatory fields as per standard
	if primary {
		if !fits.Header.Bools["SIMPLE"] {
			return fmt.Errorf("%d: Not a valid FITS file; SIMPLE=T missing in header", fits.ID)
		}
		delete(fits.Header.Bools, "SIMPLE")
	} else {
		xtension:=strings.TrimSpace(fits.Header.Strings["XTENSION"])
		if xtension!="IMAGE" {
			return fmt.Errorf("%d: Unsupported FITS extension type '%s'", fits.ID, xtension)
		}
		delete(fits.Header.Strings, "XTENSION")
	}

	if fits.Bitpix, err=fits.PopHeaderInt32("BITPIX"); err!=nil {
		return err
	}
	var naxis int32
	if naxis, err=fits.PopHeaderInt32("NAXIS"); err!=nil {
		return err
	}
	fits.Naxisn=make([]int32, naxis)
	if naxis>0 { fits.Pixels=1 }
	for i:=int32(1); i<=naxis; i++ {
		name:="NAXIS"+strconv.FormatInt(int64(i), 10)
		var nai int32
		if nai, err=fits.PopHeaderInt32(name); err!=nil {
			return err
		}
		fits.Naxisn[i-1]=nai
		fits.Pixels*=nai
	}

	// check key optional fields
	if fits.Bzero, err=fits.PopHeaderInt32OrFloat("BZERO"); err!=nil {
		fits.Bzero=0
	}
	if fits.Bscale, err=fits.PopHeaderInt32OrFloat("BSCALE"); err!=nil {
		fits.Bscale=1
	}
	if name, ok:=fits.Header.Strings["EXTNAME"]; ok {
		fits.ExtName=strings.TrimSpace(name)
	}

	if fits.Pixels==0 {
		return nil
	}
	return fits.readData(r, logWriter)
}

// Read image data from the reader, convert to float32 data type, apply
// Bzero/Bscale and reset them afterwards. Consumes the block padding
// after the data so the next HDU can be read from the same reader
func (fits *Image) readData(r io.Reader, logWriter io.Writer) (err error) {
	bytesPerValue:=int(fits.Bitpix)/8
	if bytesPerValue<0 { bytesPerValue=-bytesPerValue }
	switch fits.Bitpix {
	case 8, 16, -32:
		// no loss of precision
	case 32, 64:
		fmt.Fprintf(logWriter, "%d: Warning: loss of precision converting int%d to float32 values\n", fits.ID, fits.Bitpix)
	case -64:
		fmt.Fprintf(logWriter, "%d: Warning: loss of precision converting float%d to float32 values\n", fits.ID, -fits.Bitpix)
	default:
		return fmt.Errorf("%d: Unknown BITPIX value %d", fits.ID, fits.Bitpix)
	}

	raw:=make([]byte, int(fits.Pixels)*bytesPerValue)
	if _, err=io.ReadFull(r, raw); err!=nil {
		return fmt.Errorf("%d: %s", fits.ID, err.Error())
	}

	min, max, sum:=float32(math.MaxFloat32), float32(-math.MaxFloat32), float64(0)
	fits.Data=make([]float32, int(fits.Pixels))
	for i:=range fits.Data {
		v:=decodeBigEndian(raw[i*bytesPerValue:(i+1)*bytesPerValue], fits.Bitpix)*fits.Bscale + fits.Bzero
		if v<min { min=v }
		if v>max { max=v }
		sum+=float64(v)
		fits.Data[i]=v
	}
	fits.Bzero, fits.Bscale=0, 1 // reflect that data values incorporate these now
	fits.Stats=&stats.Basic{Min: min, Max: max, Mean: float32(sum/float64(len(fits.Data))), Sum: sum}

	// consume padding up to the next block boundary; EOF here is fine,
	// some writers omit the padding after the last HDU
	if padding:=(fitsBlockSize-len(raw)%fitsBlockSize)%fitsBlockSize; padding>0 {
		pad:=make([]byte, padding)
		if _, err=io.ReadFull(r, pad); err!=nil && err!=io.EOF && err!=io.ErrUnexpectedEOF {
			return fmt.Errorf("%d: %s", fits.ID, err.Error())
		}
	}
	return nil
}

// Decodes one big-endian value of the given BITPIX type into a float32
func decodeBigEndian(buf []byte, bitpix int32) float32 {
	switch bitpix {
	case 8:
		return float32(buf[0])
	case 16:
		return float32(int16((uint16(buf[0])<<8)|uint16(buf[1])))
	case 32:
		return float32(int32((uint32(buf[0])<<24)|(uint32(buf[1])<<16)|(uint32(buf[2])<<8)|uint32(buf[3])))
	case 64:
		return float32(int64((uint64(buf[0])<<56)|(uint64(buf[1])<<48)|(uint64(buf[2])<<40)|(uint64(buf[3])<<32)|
			(uint64(buf[4])<<24)|(uint64(buf[5])<<16)|(uint64(buf[6])<<8)|uint64(buf[7])))
	case -32:
		bits:=(uint32(buf[0])<<24)|(uint32(buf[1])<<16)|(uint32(buf[2])<<8)|uint32(buf[3])
		return math.Float32frombits(bits)
	case -64:
		bits:=(uint64(buf[0])<<56)|(uint64(buf[1])<<48)|(uint64(buf[2])<<40)|(uint64(buf[3])<<32)|
			(uint64(buf[4])<<24)|(uint64(buf[5])<<16)|(uint64(buf[6])<<8)|uint64(buf[7])
		return float32(math.Float64frombits(bits))
	}
	return float32(math.NaN())
}

func (h *Header) read(r io.Reader, id int, logWriter io.Writer) error {
	buf:=make([]byte, fitsBlockSize)

	for h.Length=0; !h.End; {
		// read next header unit
		bytesRead, err:=io.ReadFull(r, buf)
		if err!=nil || bytesRead!=fitsBlockSize {
			if h.Length==0 && (err==io.EOF || err==io.ErrUnexpectedEOF) { return io.EOF }
			return fmt.Errorf("%d: %s", id, err.Error())
		}
		h.Length+=int32(bytesRead)

		// parse all lines in this header unit
		for lineNo:=0; lineNo<fitsBlockSize/HeaderLineSize && !h.End; lineNo++ {
			line:=buf[lineNo*HeaderLineSize : (lineNo+1)*HeaderLineSize]
			subValues:=reParser.FindSubmatch(line)
			if subValues==nil {
				fmt.Fprintf(logWriter, "%d: Warning:Cannot parse '%s', ignoring\n", id, string(line))
			} else {
				subNames:=reParser.SubexpNames()
				h.readLine(subNames, subValues, id, lineNo, logWriter)
			}
		}
	}
	return nil
}

func (h *Header) readLine(subNames []string, subValues [][]byte, id, lineNo int, logWriter io.Writer) {
	key:=""
	// ignore index 0 which is the whole line
	for i:=1; i<len(subNames); i++ {
		if subValues[i]!=nil && len(subNames[i])==1 {
			switch c:=subNames[i][0]; c {
			case byte('E'): // end line
				h.End=true
			case byte('H'): // history line
				h.History=append(h.History, string(subValues[i]))
			case byte('C'): // comment line
				h.Comments=append(h.Comments, string(subValues[i]))
			case byte('k'): // key
				key=string(subValues[i])
			case byte('b'): // boolean
				if len(subValues[i])>0 {
					v:=subValues[i][0]
					h.Bools[key]=v==byte('t') || v==byte('T')
				}
			case byte('i'): // int
				val, err:=strconv.ParseInt(string(subValues[i]), 10, 64)
				if err==nil {
					h.Ints[key]=int32(val)
				}
			case byte('f'): // float
				val, err:=strconv.ParseFloat(string(subValues[i]), 64)
				if err==nil {
					h.Floats[key]=float32(val)
				}
			case byte('s'): // string
				h.Strings[key]=string(subValues[i])
			case byte('d'): // date
				h.Dates[key]=string(subValues[i])
			case byte('c'): // comment
				// ignore value comments
			default:
				fmt.Fprintf(logWriter, "%d:%d:Warning:Unknown token '%s'\n", id, lineNo, string(c))
			}
		}
	}
}

func (h *Header) Print() {
	fmt.Printf("Bools   : %v\n", h.Bools)
	fmt.Printf("Ints    : %v\n", h.Ints)
	fmt.Printf("Floats  : %v\n", h.Floats)
	fmt.Printf("Strings : %v\n", h.Strings)
	fmt.Printf("Dates   : %v\n", h.Dates)
	fmt.Printf("History : %v\n", h.History)
	fmt.Printf("Comments: %v\n", h.Comments)
	fmt.Printf("End     : %v\n", h.End)
}

// Build regexp parser for FITS header lines
func compileRE() *regexp.Regexp {
	white:="\\s+"
	whiteOpt:="\\s*"
	whiteLine:=white

	hist:="HISTORY"
	rest:=".*"
	histLine:=hist + white + "(?P<H>" + rest + ")"

	commKey:="COMMENT"
	commLine:=commKey + white + "(?P<C>" + rest + ")"

	end:="(?P<E>END)"
	endLine:=end + whiteOpt

	key:="(?P<k>[A-Z0-9_-]+)"
	equals:="="

	boo:="(?P<b>[TF])"
	inte:="(?P<i>[+-]?[0-9]+)"
	floa:="(?P<f>[+-]?[0-9]*\\.[0-9]*(?:[ED][-+]?[0-9]+)?)"
	stri:="'(?P<s>[^']*)'"
	date:="(?P<d>[0-9]{1,4}-?[012][0-9]-?[0123][0-9]T[012][0-9]:?[0-5][0-9]:?[0-5][0-9].?[0-9]*)"
	val:="(?:" + boo + "|" + inte + "|" + floa + "|" + stri + "|" + date + ")"

	commOpt:="(?:/(?P<c>.*))?"
	keyLine:=key + whiteOpt + equals + whiteOpt + val + whiteOpt + commOpt

	lineRe:="^(?:" + whiteLine + "|" + histLine + "|" + commLine + "|" + keyLine + "|" + endLine + ")$"
	return regexp.MustCompile(lineRe)
}
