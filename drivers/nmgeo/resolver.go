package nmgeo

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/ugorji/go/codec"

	"github.com/multisense-org/sensor-native/api/driver"
	"github.com/multisense-org/sensor-native/api/errorkinds"
)

// wire holds an encoder and decoder for the geolocate protocol.
type wire struct {
	check bool

	jsonEncoder *codec.Encoder
	jsonDecoder *codec.Decoder
	jsonHandle  codec.JsonHandle

	jsonData []byte

	jsonMu sync.Mutex
}

var genwire wire

func init() {
	if !genwire.check {
		genwire.jsonHandle = codec.JsonHandle{}
		genwire.jsonHandle.TypeInfos = codec.NewTypeInfos([]string{"json"})
		genwire.jsonEncoder = codec.NewEncoderBytes(&genwire.jsonData, &genwire.jsonHandle)
		genwire.jsonDecoder = codec.NewDecoderBytes(genwire.jsonData, &genwire.jsonHandle)

		genwire.jsonData = make([]byte, 0, 4096)
		genwire.check = true
	}
}

func marshalWire[T any](v T) ([]byte, error) {
	genwire.jsonMu.Lock()
	defer genwire.jsonMu.Unlock()

	genwire.jsonEncoder.ResetBytes(&genwire.jsonData)
	if err := genwire.jsonEncoder.Encode(v); err != nil {
		return nil, err
	}

	return append([]byte(nil), genwire.jsonData...), nil
}

func unmarshalWire[T any](data []byte, marshalTo T) error {
	genwire.jsonMu.Lock()
	defer genwire.jsonMu.Unlock()

	genwire.jsonDecoder.ResetBytes(data)

	return genwire.jsonDecoder.Decode(marshalTo)
}

type wifiObservation struct {
	MacAddress     string `json:"macAddress"`
	SignalStrength int    `json:"signalStrength,omitempty"`
	Frequency      uint32 `json:"frequency,omitempty"`
	SSID           string `json:"ssid,omitempty"`
}

type geolocateRequest struct {
	ConsiderIP       bool              `json:"considerIp"`
	WifiAccessPoints []wifiObservation `json:"wifiAccessPoints"`
}

type geolocateResponse struct {
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
	Accuracy float64 `json:"accuracy"`
}

const maxResponseBytes = 1 << 16

// HTTPResolver resolves observations against a web service speaking the
// geolocate protocol.
type HTTPResolver struct {
	// Endpoint is the full geolocate URL, including any API key.
	Endpoint string

	// Client defaults to a client with a ten second timeout.
	Client *http.Client
}

// Resolve submits the observations and returns the estimated fix.
// Access points opting out of positioning are left out of the request.
func (r *HTTPResolver) Resolve(ctx context.Context, observations []driver.APObservation) (driver.GeoSample, error) {
	request := geolocateRequest{WifiAccessPoints: make([]wifiObservation, 0, len(observations))}
	for _, observation := range observations {
		if strings.HasSuffix(observation.SSID, "_nomap") {
			continue
		}

		request.WifiAccessPoints = append(request.WifiAccessPoints, wifiObservation{
			MacAddress:     observation.BSSID,
			SignalStrength: strengthToDBM(observation.Strength),
			Frequency:      observation.Frequency,
			SSID:           observation.SSID,
		})
	}

	if len(request.WifiAccessPoints) == 0 {
		return driver.GeoSample{}, fault.Wrap(errors.New("no usable access points"),
			fctx.With(ctx, "error_at", "nmgeo-resolve"),
			ftag.With(errorkinds.TagUnavailable),
			fmsg.With("Cannot resolve a position without observations"),
		)
	}

	body, err := marshalWire(request)
	if err != nil {
		return driver.GeoSample{}, fault.Wrap(err,
			fctx.With(ctx, "error_at", "nmgeo-encode"),
			ftag.With(errorkinds.TagSystemError),
			fmsg.With("Cannot encode the resolver request"),
		)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(body))
	if err != nil {
		return driver.GeoSample{}, fault.Wrap(err,
			fctx.With(ctx, "error_at", "nmgeo-request"),
			ftag.With(errorkinds.TagSystemError),
			fmsg.With("Cannot build the resolver request"),
		)
	}
	httpRequest.Header.Set("Content-Type", "application/json")

	client := r.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	response, err := client.Do(httpRequest)
	if err != nil {
		return driver.GeoSample{}, fault.Wrap(err,
			fctx.With(ctx, "error_at", "nmgeo-submit"),
			ftag.With(errorkinds.TagUnavailable),
			fmsg.With("The positioning service is not reachable"),
		)
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return driver.GeoSample{}, fault.Wrap(err,
			fctx.With(ctx, "error_at", "nmgeo-read"),
			ftag.With(errorkinds.TagSystemError),
			fmsg.With("Cannot read the resolver response"),
		)
	}

	if response.StatusCode != http.StatusOK {
		return driver.GeoSample{}, fault.Wrap(errors.New(response.Status),
			fctx.With(ctx, "error_at", "nmgeo-status", "status", response.Status),
			ftag.With(errorkinds.TagUnavailable),
			fmsg.With("The positioning service refused the request"),
		)
	}

	var decoded geolocateResponse
	if err := unmarshalWire(payload, &decoded); err != nil {
		return driver.GeoSample{}, fault.Wrap(err,
			fctx.With(ctx, "error_at", "nmgeo-decode"),
			ftag.With(errorkinds.TagSystemError),
			fmsg.With("Cannot decode the resolver response"),
		)
	}

	return driver.GeoSample{
		Latitude:           decoded.Location.Lat,
		Longitude:          decoded.Location.Lng,
		HorizontalAccuracy: decoded.Accuracy,
		VerticalAccuracy:   -1,
		Speed:              -1,
		Course:             -1,
	}, nil
}

// strengthToDBM converts the NetworkManager strength percentage into the
// dBm value the geolocate protocol expects.
func strengthToDBM(strength uint8) int {
	if strength > 100 {
		strength = 100
	}
	return int(strength)/2 - 100
}
