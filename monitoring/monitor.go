// Package monitoring turns a running session into a web server that can be
// watched and steered remotely.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"reflect"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/neurotrack/neurotrack/eeg"
	"github.com/neurotrack/neurotrack/monitoring/web"
	"github.com/neurotrack/neurotrack/recording"
	"github.com/neurotrack/neurotrack/session"
	"github.com/neurotrack/neurotrack/sim"
)

// A Runner runs functions on the goroutine that owns the session.
type Runner interface {
	Do(ctx context.Context, fn func()) error
}

// A Pauser is a Runner that can freeze virtual time.
type Pauser interface {
	Pause(ctx context.Context) error
	Continue(ctx context.Context) error
}

// Monitor serves the state of a session over HTTP and accepts session
// commands. It is also a hook; attach it to the controller and the model so
// that it can stream their updates.
type Monitor struct {
	controller *session.Controller
	runner     Runner
	components []sim.Named
	sessions   *recording.SessionRecorder
	hub        *Hub
	portNumber int
	decimation int

	samples         int
	lastSessionTime float64

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
	calibrationBar   *ProgressBar

	server *http.Server
}

// NewMonitor creates a new Monitor for the controller. Every access to the
// controller goes through the runner.
func NewMonitor(controller *session.Controller, runner Runner) *Monitor {
	m := &Monitor{
		controller: controller,
		runner:     runner,
		hub:        NewHub(),
		decimation: 1,
	}

	m.RegisterComponent(controller)

	return m
}

// WithPortNumber sets the port number of the monitor. Port 0 picks a free
// port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithDecimation streams only one out of every n samples. Snapshots that do
// not carry a new sample are always streamed.
func (m *Monitor) WithDecimation(n int) *Monitor {
	if n < 1 {
		n = 1
	}

	m.decimation = n

	return m
}

// WithSessionRecorder enables the history endpoints.
func (m *Monitor) WithSessionRecorder(r *recording.SessionRecorder) *Monitor {
	m.sessions = r
	return m
}

// RegisterComponent makes a component visible to the inspection endpoints.
func (m *Monitor) RegisterComponent(c sim.Named) {
	m.components = append(m.components, c)
}

// Hub returns the hub that streams updates.
func (m *Monitor) Hub() *Hub {
	return m.hub
}

// Func receives the hooks of the controller and the model.
func (m *Monitor) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case eeg.HookPosSnapshot:
		m.streamSnapshot(ctx.Item.(eeg.Snapshot))
	case eeg.HookPosAcuteEvent:
		m.hub.Publish("acute_event", ctx.Item)
	case session.HookPosPhaseChange:
		change := ctx.Item.(session.PhaseChange)
		if !change.To.InCalibration() {
			m.completeCalibrationBar()
		}
		m.hub.Publish("phase_change", change)
	case session.HookPosCountdown:
		cal := ctx.Item.(session.Calibration)
		m.updateCalibrationBar(cal)
		m.hub.Publish("countdown", cal)
	}
}

func (m *Monitor) streamSnapshot(s eeg.Snapshot) {
	isSample := s.SessionTimeMs > m.lastSessionTime
	m.lastSessionTime = s.SessionTimeMs

	if isSample {
		m.samples++
		if m.samples%m.decimation != 0 {
			return
		}
	}

	m.hub.Publish("snapshot", s)
}

func (m *Monitor) updateCalibrationBar(cal session.Calibration) {
	if m.calibrationBar == nil {
		m.calibrationBar = m.CreateProgressBar(cal.Title, uint64(cal.Total))
		m.calibrationBar.Prompt = cal.Prompt
	}

	m.calibrationBar.SetFinished(uint64(cal.Total - cal.Remaining))
}

func (m *Monitor) completeCalibrationBar() {
	if m.calibrationBar == nil {
		return
	}

	m.CompleteProgressBar(m.calibrationBar)
	m.calibrationBar = nil
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        sim.GetIDGenerator().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/session/start/{mode}", m.startSession).Methods(http.MethodPost)
	r.HandleFunc("/api/session/pause", m.togglePause).Methods(http.MethodPost)
	r.HandleFunc("/api/session/stop", m.stopSession).Methods(http.MethodPost)
	r.HandleFunc("/api/session/abort", m.abortStartup).Methods(http.MethodPost)
	r.HandleFunc("/api/patient", m.setPatient).Methods(http.MethodPut)
	r.HandleFunc("/api/connection", m.setConnection).Methods(http.MethodPut)
	r.HandleFunc("/api/snapshot", m.snapshot).Methods(http.MethodGet)
	r.HandleFunc("/api/status", m.status).Methods(http.MethodGet)
	r.HandleFunc("/api/now", m.now).Methods(http.MethodGet)
	r.HandleFunc("/api/pause", m.pause).Methods(http.MethodPost)
	r.HandleFunc("/api/continue", m.continueSim).Methods(http.MethodPost)
	r.HandleFunc("/api/list_components", m.listComponents).Methods(http.MethodGet)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails).Methods(http.MethodGet)
	r.HandleFunc("/api/field/{json}", m.listFieldValue).Methods(http.MethodGet)
	r.HandleFunc("/api/progress", m.listProgressBars).Methods(http.MethodGet)
	r.HandleFunc("/api/history/{table}", m.history).Methods(http.MethodGet)
	r.HandleFunc("/api/summary/{session}", m.summary).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)
	r.Handle("/ws", m.hub)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the stream hub and the web server. Both stop when the
// context is canceled. It returns the port the server listens on.
func (m *Monitor) StartServer(ctx context.Context) (int, error) {
	actualPort := ":" + strconv.Itoa(m.portNumber)

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return 0, fmt.Errorf("monitor: %w", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port
	fmt.Fprintf(os.Stderr,
		"Monitoring session with http://localhost:%d\n", port)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go m.hub.Run(ctx)

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("monitor: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), 2*time.Second)
		defer cancel()

		m.server.Shutdown(shutdownCtx)
	}()

	return port, nil
}

// do runs fn on the session goroutine. It answers 503 and returns false if
// that is not possible.
func (m *Monitor) do(w http.ResponseWriter, r *http.Request, fn func()) bool {
	err := m.runner.Do(r.Context(), fn)
	if err != nil {
		httpError(w, http.StatusServiceUnavailable, err)
		return false
	}

	return true
}

func (m *Monitor) startSession(w http.ResponseWriter, r *http.Request) {
	mode, err := session.ParseMode(mux.Vars(r)["mode"])
	if err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	var status session.Status
	if m.do(w, r, func() {
		err = m.controller.StartSession(mode)
		status = m.controller.Status()
	}) {
		if err != nil {
			httpError(w, http.StatusBadRequest, err)
			return
		}

		writeJSON(w, status)
	}
}

func (m *Monitor) togglePause(w http.ResponseWriter, r *http.Request) {
	m.command(w, r, m.controller.TogglePauseResume)
}

func (m *Monitor) stopSession(w http.ResponseWriter, r *http.Request) {
	resetPatient := false
	if v := r.URL.Query().Get("reset_patient"); v != "" {
		var err error

		resetPatient, err = strconv.ParseBool(v)
		if err != nil {
			httpError(w, http.StatusBadRequest, err)
			return
		}
	}

	m.command(w, r, func() { m.controller.StopSession(resetPatient) })
}

func (m *Monitor) abortStartup(w http.ResponseWriter, r *http.Request) {
	m.command(w, r, m.controller.AbortStartup)
}

func (m *Monitor) setPatient(w http.ResponseWriter, r *http.Request) {
	data := map[string]string{}

	err := json.NewDecoder(r.Body).Decode(&data)
	if err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	m.command(w, r, func() { m.controller.SetPatientData(data) })
}

type connectionReq struct {
	Status string `json:"status"`
}

func (m *Monitor) setConnection(w http.ResponseWriter, r *http.Request) {
	req := connectionReq{}

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	m.command(w, r, func() { m.controller.SetConnectionStatus(req.Status) })
}

// command runs fn and answers with the resulting status.
func (m *Monitor) command(w http.ResponseWriter, r *http.Request, fn func()) {
	var status session.Status
	if m.do(w, r, func() {
		fn()
		status = m.controller.Status()
	}) {
		writeJSON(w, status)
	}
}

func (m *Monitor) snapshot(w http.ResponseWriter, r *http.Request) {
	var s eeg.Snapshot
	if m.do(w, r, func() { s = m.controller.Snapshot() }) {
		writeJSON(w, s)
	}
}

func (m *Monitor) status(w http.ResponseWriter, r *http.Request) {
	var s session.Status
	if m.do(w, r, func() { s = m.controller.Status() }) {
		writeJSON(w, s)
	}
}

func (m *Monitor) now(w http.ResponseWriter, r *http.Request) {
	var now sim.VTimeInSec
	if m.do(w, r, func() { now = m.controller.Status().Now }) {
		fmt.Fprintf(w, "{\"now\":%.10f}", now)
	}
}

func (m *Monitor) pause(w http.ResponseWriter, r *http.Request) {
	m.setPaused(w, r, Pauser.Pause)
}

func (m *Monitor) continueSim(w http.ResponseWriter, r *http.Request) {
	m.setPaused(w, r, Pauser.Continue)
}

func (m *Monitor) setPaused(
	w http.ResponseWriter,
	r *http.Request,
	op func(Pauser, context.Context) error,
) {
	pauser, ok := m.runner.(Pauser)
	if !ok {
		httpError(w, http.StatusNotImplemented,
			errors.New("the runner cannot pause"))
		return
	}

	if err := op(pauser, r.Context()); err != nil {
		httpError(w, http.StatusServiceUnavailable, err)
		return
	}

	m.now(w, r)
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.components))
	for _, c := range m.components {
		names = append(names, c.Name())
	}

	writeJSON(w, names)
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	component := m.findComponentOr404(w, name)
	if component == nil {
		return
	}

	m.serialize(w, r, component, "")
}

type fieldReq struct {
	CompName  string `json:"comp_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	component := m.findComponentOr404(w, req.CompName)
	if component == nil {
		return
	}

	m.serialize(w, r, component, req.FieldName)
}

// serialize dumps a component with goseth. The dump is taken on the
// session goroutine and written afterwards.
func (m *Monitor) serialize(
	w http.ResponseWriter,
	r *http.Request,
	component any,
	fields string,
) {
	buf := bytes.NewBuffer(nil)

	var err error
	ok := m.do(w, r, func() {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(component)
		serializer.SetMaxDepth(1)

		if fields != "" {
			_, err = walkFields(component, fields)
			if err != nil {
				return
			}

			err = serializer.SetEntryPoint(strings.Split(fields, "."))
			if err != nil {
				return
			}
		}

		err = serializer.Serialize(buf)
	})
	if !ok {
		return
	}

	if err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeBody(w, buf.Bytes())
}

type fieldFormatError struct {
	field string
}

func (e fieldFormatError) Error() string {
	return fmt.Sprintf("cannot resolve field %q", e.field)
}

// walkFields follows a dot separated path of field names and slice indices
// from comp.
func walkFields(comp any, fields string) (reflect.Value, error) {
	elem := reflect.ValueOf(comp)

	fieldNames := strings.Split(fields, ".")

	for len(fieldNames) > 0 {
		switch elem.Kind() {
		case reflect.Ptr, reflect.Interface:
			elem = elem.Elem()
		case reflect.Struct:
			elem = elem.FieldByName(fieldNames[0])
			fieldNames = fieldNames[1:]
		case reflect.Slice:
			index, err := strconv.Atoi(fieldNames[0])
			if err != nil || index < 0 || index >= elem.Len() {
				return elem, fieldFormatError{fields}
			}

			elem = elem.Index(index)
			fieldNames = fieldNames[1:]
		default:
			return elem, fieldFormatError{fields}
		}
	}

	if elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}

	if !elem.IsValid() {
		return elem, fieldFormatError{fields}
	}

	return elem, nil
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) sim.Named {
	for _, c := range m.components {
		if c.Name() == name {
			return c
		}
	}

	w.WriteHeader(http.StatusNotFound)
	writeBody(w, []byte("Component not found"))

	return nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	views := make([]progressBarView, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		views = append(views, b.view())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, views)
}

func (m *Monitor) history(w http.ResponseWriter, r *http.Request) {
	if m.sessions == nil {
		httpError(w, http.StatusNotFound, errors.New("recording is disabled"))
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httpError(w, http.StatusBadRequest,
				fmt.Errorf("invalid limit %q", v))
			return
		}

		limit = n
	}

	table := mux.Vars(r)["table"]
	if !m.isSessionTable(table) {
		httpError(w, http.StatusNotFound, fmt.Errorf("no table %s", table))
		return
	}

	if !m.do(w, r, m.sessions.Flush) {
		return
	}

	results, total, err := m.sessions.Reader().Query(r.Context(), table,
		recording.QueryParams{OrderBy: "rowid DESC", Limit: limit})
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, struct {
		Total   int   `json:"total"`
		Entries []any `json:"entries"`
	}{total, results})
}

func (m *Monitor) isSessionTable(name string) bool {
	for _, t := range m.sessions.Reader().ListTables() {
		if t == name {
			return true
		}
	}

	return false
}

func (m *Monitor) summary(w http.ResponseWriter, r *http.Request) {
	if m.sessions == nil {
		httpError(w, http.StatusNotFound, errors.New("recording is disabled"))
		return
	}

	var (
		s   recording.Summary
		err error
	)

	id := mux.Vars(r)["session"]
	if !m.do(w, r, func() { s, err = m.sessions.Summarize(r.Context(), id) }) {
		return
	}

	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, s)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
	Clients    int     `json:"stream_clients"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	cpuPercent, err := process.CPUPercent()
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	memorySize, err := process.MemoryInfo()
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
		Clients:    m.hub.ClientCount(),
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		httpError(w, http.StatusConflict, err)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	writeBody(w, bytes)
}

// writeBody writes b to the client. A client that went away is not an
// error of the monitor, so failures are only logged.
func writeBody(w http.ResponseWriter, b []byte) {
	if _, err := w.Write(b); err != nil {
		log.Printf("monitor: write response: %v", err)
	}
}

func httpError(w http.ResponseWriter, code int, err error) {
	w.WriteHeader(code)
	fmt.Fprintf(w, "Error: %s", err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
