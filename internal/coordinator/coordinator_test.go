package coordinator

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundnav/internal/fetcher"
	"fundnav/internal/nav"
	"fundnav/internal/output"
	"fundnav/internal/parser"
	"fundnav/internal/ratelimit"
	"fundnav/internal/testutil"
)

// dailyRows returns n rows for consecutive days ending at newest, newest first
func dailyRows(newest string, n int) [][]string {
	end, err := time.Parse(nav.DateLayout, newest)
	if err != nil {
		panic(err)
	}
	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		d := end.AddDate(0, 0, -i).Format(nav.DateLayout)
		rows = append(rows, testutil.Row(d, "1.0100", "1.2100", "0.10%", "开放申购", "开放赎回"))
	}
	return rows
}

func quietLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestNew(t *testing.T) {
	coord := New(testutil.NewPagedFetcher(nil))
	require.NotNil(t, coord)
	assert.Equal(t, DefaultMaxPages, coord.maxPages)
	assert.Len(t, coord.writers, 1)

	coord = New(testutil.NewPagedFetcher(nil), WithMaxPages(7), WithMaxPages(0))
	assert.Equal(t, 7, coord.maxPages)

	coord = New(testutil.NewPagedFetcher(nil), WithMaxPages(100000))
	assert.Equal(t, DefaultMaxPages, coord.maxPages, "page limit cannot be raised")
}

func TestDownload_SinglePageScenario(t *testing.T) {
	table := testutil.TableHTML(
		testutil.Row("2013-01-30", "1.0000", "1.0000", "-", "开放", "开放"),
		testutil.Row("2013-02-01", "1.0050", "1.0050", "0.50", "开放", "开放"),
	)
	mock := testutil.NewPagedFetcher(map[int]string{
		1: testutil.EnvelopeBody(table, 2, 1),
		2: testutil.EnvelopeBody(table, 2, 1),
	})
	dir := t.TempDir()

	res, err := New(mock).Download(context.Background(), "210014", 20, dir)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, mock.Pages)
	require.Len(t, res.Paths, 1)
	assert.Equal(t, filepath.Join(dir, "fund_210014_netvalue_20130201_to_20130130.csv"), res.Paths[0])

	data, err := os.ReadFile(res.Paths[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "2013-02-01,1.0050,1.0050,0.50,"))
	assert.True(t, strings.HasPrefix(lines[2], "2013-01-30,1.0000,1.0000,,"))
}

func TestCollect_DeduplicatesPageOverlap(t *testing.T) {
	rows := dailyRows("2024-01-10", 5)
	mock := testutil.NewPagedFetcher(map[int]string{
		1: testutil.EnvelopeBody(testutil.TableHTML(rows[0:3]...), 5, 2),
		2: testutil.ScriptBody(testutil.TableHTML(rows[2:5]...), 5, 2),
	})

	res, err := New(mock).Collect(context.Background(), "210014", 3)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, mock.Pages)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 5, res.History.Len())

	counts := map[time.Time]int{}
	for _, r := range res.History.Records {
		counts[r.Date]++
	}
	for d, n := range counts {
		assert.Equal(t, 1, n, "date %s appears %d times", d.Format(nav.DateLayout), n)
	}
	assert.Equal(t, "2024-01-10", res.History.MaxDate.Format(nav.DateLayout))
	assert.Equal(t, "2024-01-06", res.History.MinDate.Format(nav.DateLayout))
}

func TestDownload_ZeroReportedRecords(t *testing.T) {
	empty := "<table><tbody><tr><td colspan='7' align='center'>暂无数据!</td></tr></tbody></table>"
	mock := testutil.NewPagedFetcher(map[int]string{
		1: testutil.EnvelopeBody(empty, 0, 0),
	})
	dir := t.TempDir()

	res, err := New(mock).Download(context.Background(), "000001", 20, dir)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, mock.Pages)
	assert.True(t, res.History.Empty())
	require.Len(t, res.Paths, 1)

	data, err := os.ReadFile(res.Paths[0])
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"), "want header row only")
}

func TestCollect_PageLimitIsNotFatal(t *testing.T) {
	mock := &testutil.MockPageFetcher{}
	mock.FetchFunc = func(ctx context.Context, fundCode string, page, pageSize int) (*fetcher.RawResponse, error) {
		newest := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -2*(page-1))
		table := testutil.TableHTML(dailyRows(newest.Format(nav.DateLayout), 2)...)
		return &fetcher.RawResponse{Page: page, StatusCode: 200, Body: testutil.EnvelopeBody(table, 1000, 500)}, nil
	}
	var logs bytes.Buffer

	res, err := New(mock, WithMaxPages(3), WithLogger(quietLogger(&logs))).Collect(context.Background(), "210014", 2)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, mock.Pages)
	assert.True(t, res.Truncated)
	assert.Equal(t, 6, res.History.Len())
	assert.Contains(t, logs.String(), "page limit reached")
}

func TestCollect_FirstPageFailureIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		pages map[int]string
		check func(t *testing.T, err error)
	}{
		{
			name:  "fetch error",
			pages: map[int]string{},
			check: func(t *testing.T, err error) {
				var fetchErr *fetcher.FetchError
				require.True(t, errors.As(err, &fetchErr))
				assert.Equal(t, 1, fetchErr.Page)
			},
		},
		{
			name:  "parse error",
			pages: map[int]string{1: "<html>service unavailable</html>"},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, parser.ErrUnrecognizedBody)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()

			res, err := New(testutil.NewPagedFetcher(tt.pages)).Download(context.Background(), "210014", 20, dir)
			require.Error(t, err)
			assert.Nil(t, res)
			tt.check(t, err)

			entries, readErr := os.ReadDir(dir)
			require.NoError(t, readErr)
			assert.Empty(t, entries, "no output expected after a first-page failure")
		})
	}
}

func TestCollect_LaterPageFailureKeepsRows(t *testing.T) {
	rows := dailyRows("2024-01-10", 4)
	mock := testutil.NewPagedFetcher(map[int]string{
		1: testutil.EnvelopeBody(testutil.TableHTML(rows[0:2]...), 10, 5),
		2: testutil.EnvelopeBody(testutil.TableHTML(rows[2:4]...), 10, 5),
	})
	var logs bytes.Buffer

	res, err := New(mock, WithLogger(quietLogger(&logs))).Collect(context.Background(), "210014", 2)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, mock.Pages)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 4, res.History.Len())

	var fetchErr *fetcher.FetchError
	require.True(t, errors.As(res.Interrupted, &fetchErr))
	assert.Equal(t, 3, fetchErr.Page)
	assert.Contains(t, logs.String(), "stopping early")
}

func TestCollect_UnknownTotalStopsOnEmptyPage(t *testing.T) {
	rows := dailyRows("2024-01-10", 4)
	mock := testutil.NewPagedFetcher(map[int]string{
		1: `{"content":"` + testutil.TableHTML(rows[0:2]...) + `"}`,
		2: `{"content":"` + testutil.TableHTML(rows[2:4]...) + `"}`,
		3: `{"content":"<table></table>"}`,
		4: `{"content":"` + testutil.TableHTML(dailyRows("2023-01-01", 2)...) + `"}`,
	})

	var logs bytes.Buffer

	res, err := New(mock, WithLogger(quietLogger(&logs))).Collect(context.Background(), "210014", 2)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, mock.Pages)
	assert.Equal(t, 4, res.History.Len())
	assert.NoError(t, res.Interrupted, "running out of rows is a normal end of data")
	assert.Contains(t, logs.String(), "no further rows")
	assert.NotContains(t, logs.String(), "stopping early")
}

func TestCollect_CancellationAfterFirstPageIsFatal(t *testing.T) {
	rows := dailyRows("2024-01-10", 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := &testutil.MockPageFetcher{}
	mock.FetchFunc = func(ctx context.Context, fundCode string, page, pageSize int) (*fetcher.RawResponse, error) {
		if page == 2 {
			cancel()
			return nil, fetcher.ClassifyTransportError(ctx.Err()).OnPage(page)
		}
		body := testutil.EnvelopeBody(testutil.TableHTML(rows[0:2]...), 4, 2)
		return &fetcher.RawResponse{Page: page, StatusCode: 200, Body: body}, nil
	}
	dir := t.TempDir()

	res, err := New(mock).Download(ctx, "210014", 2, dir)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)

	var fetchErr *fetcher.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 2, fetchErr.Page)

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "a cancelled run must not leave a partial file behind")
}

func TestCollect_LogsWhenRateLimiterBlocks(t *testing.T) {
	rows := dailyRows("2024-01-10", 3)
	mock := testutil.NewPagedFetcher(map[int]string{
		1: testutil.EnvelopeBody(testutil.TableHTML(rows[0:1]...), 3, 3),
		2: testutil.EnvelopeBody(testutil.TableHTML(rows[1:2]...), 3, 3),
		3: testutil.EnvelopeBody(testutil.TableHTML(rows[2:3]...), 3, 3),
	})
	var logs bytes.Buffer

	// burst of one: page 2 takes the initial token, page 3 has to wait
	coord := New(mock, WithLimiter(ratelimit.New(20)), WithLogger(quietLogger(&logs)))
	res, err := coord.Collect(context.Background(), "210014", 1)
	require.NoError(t, err)

	assert.Equal(t, 3, res.History.Len())
	assert.Equal(t, 1, strings.Count(logs.String(), "waiting for rate limiter"))
}

func TestCollect_CountsSkippedRows(t *testing.T) {
	table := testutil.TableHTML(
		testutil.Row("2024-01-10", "1.0100", "1.2100", "0.10%", "开放申购", "开放赎回"),
		testutil.Row("2024-13-01", "1.0100", "1.2100", "0.10%", "开放申购", "开放赎回"),
	)
	mock := testutil.NewPagedFetcher(map[int]string{1: testutil.EnvelopeBody(table, 1, 1)})
	var logs bytes.Buffer

	res, err := New(mock, WithLogger(quietLogger(&logs))).Collect(context.Background(), "210014", 20)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.History.Len())
	assert.Contains(t, logs.String(), "skipped row")
	assert.Contains(t, logs.String(), "invalid date 2024-13-01")
}

type failingWriter struct {
	optional bool
}

func (failingWriter) Ext() string      { return "bin" }
func (w failingWriter) Optional() bool { return w.optional }
func (failingWriter) Write(string, *nav.FundHistory) error {
	return errors.New("disk full")
}

func TestWrite_OptionalFailureIsSkipped(t *testing.T) {
	h := nav.NewFundHistory("210014", nil)
	var logs bytes.Buffer
	coord := New(nil,
		WithWriters(output.CSVWriter{}, failingWriter{optional: true}),
		WithLogger(quietLogger(&logs)))

	paths, err := coord.Write(t.TempDir(), h)
	require.NoError(t, err)
	assert.Len(t, paths, 1)
	assert.Contains(t, logs.String(), "skipping optional output")
}

func TestWrite_PrimaryFailureIsFatal(t *testing.T) {
	coord := New(nil, WithWriters(failingWriter{optional: false}))

	_, err := coord.Write(t.TempDir(), nav.NewFundHistory("210014", nil))

	var writeErr *output.WriteError
	require.True(t, errors.As(err, &writeErr))
	assert.False(t, writeErr.Optional)
}

func TestDownload_Idempotent(t *testing.T) {
	rows := dailyRows("2024-01-10", 6)
	pages := map[int]string{
		1: testutil.EnvelopeBody(testutil.TableHTML(rows[0:3]...), 6, 2),
		2: testutil.EnvelopeBody(testutil.TableHTML(rows[3:6]...), 6, 2),
	}

	run := func(dir string) (string, []byte) {
		res, err := New(testutil.NewPagedFetcher(pages)).Download(context.Background(), "210014", 3, dir)
		require.NoError(t, err)
		data, err := os.ReadFile(res.Paths[0])
		require.NoError(t, err)
		return filepath.Base(res.Paths[0]), data
	}

	name1, data1 := run(t.TempDir())
	name2, data2 := run(t.TempDir())

	assert.Equal(t, name1, name2)
	assert.Equal(t, data1, data2)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "fetching", StateFetching.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "state(42)", State(42).String())
}
