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

package syncpump

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulburton/fitbitd/internal/b64"
)

// ClientInfo identifies this daemon to the upload server.
type ClientInfo struct {
	ClientVersion string
	OS            string
	ClientID      string
}

// opResult records the outcome of running one queued Op, for the form
// fields the next POST in a round-trip carries.
type opResult struct {
	response []byte // nil on failure
	ok       bool
}

type serverResponse struct {
	XMLName xml.Name `xml:"fitbitClient"`
	Response *struct {
		Host   string `xml:"host,attr"`
		Path   string `xml:"path,attr"`
		Port   string `xml:"port,attr"`
		Secure string `xml:"secure,attr"`
		Body   string `xml:",chardata"`
	} `xml:"response"`
	Device *struct {
		RemoteOps struct {
			RemoteOp []remoteOpXML `xml:"remoteOp"`
		} `xml:"remoteOps"`
	} `xml:"device"`
}

type remoteOpXML struct {
	OpCode      string `xml:"opCode"`
	PayloadData string `xml:"payloadData"`
	Encrypted   string `xml:"encrypted,attr"`
}

// Dialog drives one tracker's server round-trip: POST form fields plus any
// op results, follow the response's redirect chain, and collect remote ops
// the server queues to run before the next POST.
type Dialog struct {
	client *http.Client
	info   ClientInfo
	warnf  func(format string, args ...any)
}

// NewDialog builds a Dialog against the upload server described by info.
// warnf, if non-nil, receives a warning when an encrypted remote op is
// executed unencrypted (see decodeRemoteOp).
func NewDialog(info ClientInfo, warnf func(string, ...any)) *Dialog {
	return &Dialog{
		client: &http.Client{Timeout: 30 * time.Second},
		info:   info,
		warnf:  warnf,
	}
}

// Post sends one iteration of the dialog to targetURL, carrying replyBody
// (the previous iteration's echoed name=value pairs, joined by '&') and the
// outcome of any ops run since the last POST. It returns the server's next
// URL (empty if the round-trip is complete), the body to echo on that next
// iteration, and any remote ops the server queued.
func (d *Dialog) Post(ctx context.Context, targetURL, replyBody string, results []opResult) (next, nextReplyBody string, ops []Op, err error) {
	form := url.Values{}
	form.Set("beaconType", "standard")
	form.Set("clientMode", "standard")
	form.Set("clientVersion", d.info.ClientVersion)
	form.Set("os", d.info.OS)
	form.Set("clientId", d.info.ClientID)

	if replyBody != "" {
		for _, pair := range strings.Split(replyBody, "&") {
			kv := strings.SplitN(pair, "=", 2)
			if len(kv) != 2 {
				continue
			}
			form.Set(kv[0], kv[1])
		}
	}

	for i, r := range results {
		if r.ok {
			form.Set(fmt.Sprintf("opResponse[%d]", i), b64.Encode(r.response))
			form.Set(fmt.Sprintf("opStatus[%d]", i), "success")
		} else {
			form.Set(fmt.Sprintf("opStatus[%d]", i), "error")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", "", nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", nil, err
	}

	var parsed serverResponse
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return "", "", nil, fmt.Errorf("sync: unparseable server response: %w", err)
	}

	if parsed.Response != nil && parsed.Response.Host != "" {
		scheme := "http"
		if strings.EqualFold(parsed.Response.Secure, "true") {
			scheme = "https"
		}
		host := parsed.Response.Host
		if parsed.Response.Port != "" {
			host = host + ":" + parsed.Response.Port
		}
		next = (&url.URL{Scheme: scheme, Host: host, Path: parsed.Response.Path}).String()
		nextReplyBody = parsed.Response.Body
	}

	if parsed.Device != nil {
		for _, ro := range parsed.Device.RemoteOps.RemoteOp {
			op, ok := d.decodeRemoteOp(ro)
			if ok {
				ops = append(ops, op)
			}
		}
	}

	return next, nextReplyBody, ops, nil
}

// decodeRemoteOp decodes one remoteOp element. Encrypted ops are flagged
// with a warning but still decoded and executed as if plaintext, matching
// the original daemon's behavior (a real client should instead refuse
// them).
func (d *Dialog) decodeRemoteOp(ro remoteOpXML) (Op, bool) {
	raw := b64.Decode(ro.OpCode)
	if len(raw) != 7 {
		return Op{}, false
	}
	if !strings.EqualFold(ro.Encrypted, "false") && ro.Encrypted != "" && d.warnf != nil {
		d.warnf("sync: remote op flagged encrypted=%s, executing unencrypted", ro.Encrypted)
	}
	var op Op
	copy(op.Code[:], raw)
	if ro.PayloadData != "" {
		op.Payload = b64.Decode(ro.PayloadData)
	}
	return op, true
}
