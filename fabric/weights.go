package fabric

import (
	"fmt"
	"io/ioutil"

	"google.golang.org/protobuf/encoding/protowire"
)

// Best-effort inspection of the binary weights blob. The blob is a
// protobuf-serialized network parameter message; we walk the wire format
// directly instead of carrying the vendor schema, which is enough to report
// layer names and parameter sizes.

// Wire field numbers of the vendor weights format.
const (
	wireNetName = 1
	wireLegacyLayer = 2
	wireLayer = 100

	wireLayerName = 1
	wireLayerBlobs = 7
	wireLegacyLayerName = 4
	wireLegacyLayerBlobs = 6

	wireBlobData = 5
	wireBlobDoubleData = 8
)

type WeightsLayer struct {
	Name string
	// number of stored parameter values across the layer's blobs
	Params int64
}

type WeightsInfo struct {
	Name string
	Layers []WeightsLayer
	TotalParams int64
}

func InspectWeights(fname string) (WeightsInfo, error) {
	data, err := ioutil.ReadFile(fname)
	if err != nil {
		return WeightsInfo{}, err
	}
	info, err := InspectWeightsData(data)
	if err != nil {
		return info, fmt.Errorf("%s: %v", fname, err)
	}
	return info, nil
}

func InspectWeightsData(data []byte) (WeightsInfo, error) {
	var info WeightsInfo
	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return info, protowire.ParseError(n)
		}
		b = b[n:]

		if typ == protowire.BytesType && (num == wireLayer || num == wireLegacyLayer || num == wireNetName) {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return info, protowire.ParseError(n)
			}
			b = b[n:]
			if num == wireNetName {
				info.Name = string(v)
				continue
			}
			layer, err := inspectLayer(v, num == wireLegacyLayer)
			if err != nil {
				return info, err
			}
			info.Layers = append(info.Layers, layer)
			info.TotalParams += layer.Params
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return info, protowire.ParseError(n)
		}
		b = b[n:]
	}
	return info, nil
}

func inspectLayer(b []byte, legacy bool) (WeightsLayer, error) {
	nameField := protowire.Number(wireLayerName)
	blobsField := protowire.Number(wireLayerBlobs)
	if legacy {
		nameField = wireLegacyLayerName
		blobsField = wireLegacyLayerBlobs
	}

	var layer WeightsLayer
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return layer, protowire.ParseError(n)
		}
		b = b[n:]

		if typ == protowire.BytesType && (num == nameField || num == blobsField) {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return layer, protowire.ParseError(n)
			}
			b = b[n:]
			if num == nameField {
				layer.Name = string(v)
			} else {
				layer.Params += blobParams(v)
			}
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return layer, protowire.ParseError(n)
		}
		b = b[n:]
	}
	return layer, nil
}

// blobParams counts the values in a blob's packed data fields.
func blobParams(b []byte) int64 {
	var count int64
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return count
		}
		b = b[n:]

		if typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return count
			}
			b = b[n:]
			if num == wireBlobData {
				count += int64(len(v) / 4)
			} else if num == wireBlobDoubleData {
				count += int64(len(v) / 8)
			}
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return count
		}
		b = b[n:]
	}
	return count
}