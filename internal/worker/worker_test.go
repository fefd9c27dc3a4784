package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"sheetview/domain/sheet"
	"sheetview/internal/header"
)

const acmeCSV = "ACME CORP\n,,\ncodigo,nombre,precio,stock\nA1,Widget,1000,3\nA2,Gadget,2000,10\n"

// gatedReader blocks until gate is closed, then parses the bytes as CSV-ish lines
type gatedReader struct {
	gate chan struct{}
	mu   sync.Mutex
	seen [][]byte
	fail error
	boom bool
}

func (r *gatedReader) ReadMatrix(data []byte, name string) (sheet.Matrix, error) {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	r.seen = append(r.seen, data)
	r.mu.Unlock()
	if r.boom {
		panic("corrupt record")
	}
	if r.fail != nil {
		return nil, r.fail
	}
	return sheet.FromStrings([][]string{{"sku", "name", "qty"}, {string(data), "x", "1"}}), nil
}

func waitReply(t *testing.T, ch <-chan Reply) (Reply, bool) {
	t.Helper()
	select {
	case r, ok := <-ch:
		return r, ok
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reply")
		return Reply{}, false
	}
}

func TestWorkerDecodesFile(t *testing.T) {
	var mu sync.Mutex
	var logs []LogMessage
	w := Start(context.Background(), nil, Options{OnLog: func(m LogMessage) {
		mu.Lock()
		logs = append(logs, m)
		mu.Unlock()
	}})
	defer w.Close()

	ch, err := w.Submit(context.Background(), Request{FileData: []byte(acmeCSV), FileName: "acme.csv"})
	require.NoError(t, err)

	reply, ok := waitReply(t, ch)
	require.True(t, ok)
	require.True(t, reply.Success, reply.Error)
	assert.NotEmpty(t, reply.ID)
	assert.Equal(t, 2, reply.HeaderRow)
	assert.Equal(t, []string{"codigo", "nombre", "precio", "stock"}, reply.Fields)
	require.Len(t, reply.Data, 2)
	assert.Equal(t, "Widget", reply.Data[0].Get("nombre").String())

	_, open := <-ch
	assert.False(t, open, "reply channel is one-shot")

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, logs)
	for _, l := range logs {
		assert.Equal(t, MessageTypeLog, l.Type)
		assert.Equal(t, reply.ID, l.RequestID)
	}
	assert.Contains(t, logs[len(logs)-1].Message, "Final decision: row 2")
}

func TestWorkerFailureReply(t *testing.T) {
	w := Start(context.Background(), nil, Options{})
	defer w.Close()

	ch, err := w.Submit(context.Background(), Request{FileData: []byte("%PDF-1.4"), FileName: "report.pdf"})
	require.NoError(t, err)

	reply, ok := waitReply(t, ch)
	require.True(t, ok)
	assert.False(t, reply.Success)
	assert.NotEmpty(t, reply.Error)
	assert.Nil(t, reply.Collection())
}

func TestWorkerEmptyFile(t *testing.T) {
	w := Start(context.Background(), nil, Options{})
	defer w.Close()

	ch, err := w.Submit(context.Background(), Request{FileName: "empty.xlsx"})
	require.NoError(t, err)

	reply, ok := waitReply(t, ch)
	require.True(t, ok)
	require.True(t, reply.Success)
	c := reply.Collection()
	require.NotNil(t, c)
	assert.True(t, c.IsEmpty())

	raw, err := json.Marshal(reply)
	require.NoError(t, err)
	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.JSONEq(t, `[]`, string(wire["data"]))
}

func TestWorkerRecoversFromPanic(t *testing.T) {
	p := &Pipeline{Reader: &gatedReader{boom: true}, Detector: header.DefaultOptions()}
	w := Start(context.Background(), p, Options{})
	defer w.Close()

	ch, err := w.Submit(context.Background(), Request{FileData: []byte("x"), FileName: "bad.xlsx"})
	require.NoError(t, err)
	reply, ok := waitReply(t, ch)
	require.True(t, ok)
	assert.False(t, reply.Success)
	assert.Contains(t, reply.Error, "corrupt record")

	ch, err = w.Submit(context.Background(), Request{FileData: []byte("y"), FileName: "next.xlsx"})
	require.NoError(t, err)
	_, ok = waitReply(t, ch)
	assert.True(t, ok, "worker keeps serving after a panic")
}

func TestWorkerPipelineError(t *testing.T) {
	p := &Pipeline{Reader: &gatedReader{fail: errors.New("no sheet")}, Detector: header.DefaultOptions()}
	w := Start(context.Background(), p, Options{})
	defer w.Close()

	ch, err := w.Submit(context.Background(), Request{FileName: "a.xlsx", FileData: []byte("a")})
	require.NoError(t, err)
	reply, _ := waitReply(t, ch)
	assert.False(t, reply.Success)
	assert.Equal(t, "no sheet", reply.Error)
}

func TestWorkerCopiesRequestBytes(t *testing.T) {
	r := &gatedReader{gate: make(chan struct{})}
	w := Start(context.Background(), &Pipeline{Reader: r, Detector: header.DefaultOptions()}, Options{})
	defer w.Close()

	buf := []byte("original")
	ch, err := w.Submit(context.Background(), Request{FileData: buf, FileName: "a.xlsx"})
	require.NoError(t, err)
	copy(buf, "mutated!")
	close(r.gate)

	reply, ok := waitReply(t, ch)
	require.True(t, ok)
	assert.Equal(t, "original", reply.Data[0].Get("sku").String())
}

func TestWorkerCloseDiscardsInFlight(t *testing.T) {
	r := &gatedReader{gate: make(chan struct{})}
	w := Start(context.Background(), &Pipeline{Reader: r, Detector: header.DefaultOptions()}, Options{})

	ch, err := w.Submit(context.Background(), Request{FileData: []byte("a"), FileName: "a.xlsx"})
	require.NoError(t, err)

	w.Close()
	_, ok := waitReply(t, ch)
	assert.False(t, ok, "reply channel closed without a value")

	_, err = w.Submit(context.Background(), Request{FileName: "b.xlsx"})
	assert.ErrorIs(t, err, ErrClosed)
	close(r.gate)
}

func TestWorkerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &gatedReader{gate: make(chan struct{})}
	w := Start(ctx, &Pipeline{Reader: r, Detector: header.DefaultOptions()}, Options{})

	ch, err := w.Submit(context.Background(), Request{FileData: []byte("a"), FileName: "a.xlsx"})
	require.NoError(t, err)

	cancel()
	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
	_, ok := waitReply(t, ch)
	assert.False(t, ok)

	_, err = w.Submit(context.Background(), Request{FileName: "b.xlsx"})
	assert.ErrorIs(t, err, ErrClosed)
	close(r.gate)
	w.Close()
}

func TestWorkerCallerCancel(t *testing.T) {
	r := &gatedReader{gate: make(chan struct{})}
	w := Start(context.Background(), &Pipeline{Reader: r, Detector: header.DefaultOptions()}, Options{})
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := w.Submit(ctx, Request{FileData: []byte("a"), FileName: "a.xlsx"})
	require.NoError(t, err)
	cancel()

	_, ok := waitReply(t, ch)
	assert.False(t, ok)
	close(r.gate)
}

func TestDecodeMessage(t *testing.T) {
	msg, reply, err := DecodeMessage([]byte(`{"type":"log","message":"Row 3 analysis"}`))
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Nil(t, reply)
	assert.Equal(t, "Row 3 analysis", msg.Message)

	msg, reply, err = DecodeMessage([]byte(`{"success":true,"data":[{"sku":"A1","qty":3}]}`))
	require.NoError(t, err)
	assert.Nil(t, msg)
	require.NotNil(t, reply)
	require.Len(t, reply.Data, 1)
	assert.Equal(t, sheet.Number(3), reply.Data[0]["qty"])

	raw, err := json.Marshal(Reply{Success: false, Error: "bad file"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"data":null,"headerRow":0,"confidence":0,"error":"bad file"}`, string(raw))
}

func TestPipelineKeepsColumnsRightOfHeader(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"ACME"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"codigo", "nombre", "precio"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]interface{}{"A1", "Widget", 1000, "fragile"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	coll, res, err := NewPipeline().Process(buf.Bytes(), "acme.xlsx", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Index)
	assert.Equal(t, []string{"codigo", "nombre", "precio", "__EMPTY"}, coll.Fields)
	require.Equal(t, 1, coll.Len())
	assert.Equal(t, "fragile", coll.Records[0].Get("__EMPTY").String())
}
