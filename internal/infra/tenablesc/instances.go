package tenablesc

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/openctemio/scanctl/internal/metrics"
	"github.com/openctemio/scanctl/pkg/domain/scan"
)

const instanceFields = "id,name,status,startTime,finishTime"

type instanceResource struct {
	ID         flexString `json:"id"`
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	StartTime  unixTime   `json:"startTime"`
	FinishTime unixTime   `json:"finishTime"`
}

func (r instanceResource) toDomain() scan.Instance {
	return scan.Instance{
		ID:         string(r.ID),
		Name:       r.Name,
		Status:     scan.ParseStatus(r.Status),
		StartTime:  r.StartTime.Time(),
		FinishTime: r.FinishTime.Time(),
	}
}

// EarliestStart lists instances regardless of age.
var EarliestStart = time.Unix(1, 0)

// ListInstances returns the usable scan instances started between since and now.
func (s *Session) ListInstances(ctx context.Context, since time.Time) ([]scan.Instance, error) {
	start := since.Unix()
	if start < 1 {
		start = 1
	}
	q := url.Values{
		"fields":    {instanceFields},
		"startTime": {strconv.FormatInt(start, 10)},
		"endTime":   {strconv.FormatInt(time.Now().Unix(), 10)},
	}

	var out usableSet[instanceResource]
	if err := s.do(ctx, http.MethodGet, "/scanResult", q, nil, &out); err != nil {
		return nil, err
	}
	instances := make([]scan.Instance, 0, len(out.Usable))
	for _, r := range out.Usable {
		instances = append(instances, r.toDomain())
	}
	return instances, nil
}

// GetInstance fetches the current state of one instance.
func (s *Session) GetInstance(ctx context.Context, id string) (*scan.Instance, error) {
	var out instanceResource
	q := url.Values{"fields": {instanceFields}}
	if err := s.do(ctx, http.MethodGet, "/scanResult/"+url.PathEscape(id), q, nil, &out); err != nil {
		return nil, err
	}
	inst := out.toDomain()
	if inst.ID == "" {
		inst.ID = id
	}
	return &inst, nil
}

// ExportInstance streams the zipped result archive of an instance to w.
func (s *Session) ExportInstance(ctx context.Context, id string, w io.Writer) (int64, error) {
	body := map[string]string{"downloadType": "v2"}
	n, err := s.stream(ctx, http.MethodPost, "/scanResult/"+url.PathEscape(id)+"/download", body, w)
	metrics.ReportBytesTotal.Add(float64(n))
	return n, err
}
