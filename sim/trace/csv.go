package trace

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

var (
	flowColumns = []string{
		"flow_id", "conn_id", "src", "dst", "path",
		"start_time", "end_time", "duration", "bytes", "mean_bandwidth",
	}
	connectionColumns = []string{
		"conn_id", "job_id", "src", "dst", "total_size", "sent",
		"start_time", "end_time", "duration", "mean_bandwidth", "completed",
	}
	linkColumns = []string{
		"link_id", "from", "to", "capacity", "mean_utilization", "failures",
	}
	jobColumns = []string{
		"job_id", "start_time", "end_time", "duration", "completed",
	}
	assignmentColumns = []string{
		"sim_time", "wall_millis", "commodities", "error",
	}
)

// WriteCSV writes all record files into dir, creating it if needed:
// flow_info.csv, connection_info.csv, link_info.csv, job_info.csv, and
// assignments.csv.
func (r *Recorder) WriteCSV(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if err := writeCSVFile(filepath.Join(dir, "flow_info.csv"), flowColumns, r.FlowRecords(), flowRow); err != nil {
		return err
	}
	if err := writeCSVFile(filepath.Join(dir, "connection_info.csv"), connectionColumns, r.ConnectionRecords(), connectionRow); err != nil {
		return err
	}
	if err := writeCSVFile(filepath.Join(dir, "link_info.csv"), linkColumns, r.LinkRecords(), linkRow); err != nil {
		return err
	}
	if err := writeCSVFile(filepath.Join(dir, "job_info.csv"), jobColumns, r.JobRecords(), jobRow); err != nil {
		return err
	}
	return writeCSVFile(filepath.Join(dir, "assignments.csv"), assignmentColumns, r.AssignmentRecords(), assignmentRow)
}

func writeCSVFile[T any](path string, columns []string, records []T, row func(T) []string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, rec := range records {
		if err := writer.Write(row(rec)); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func flowRow(f FlowRecord) []string {
	return []string{
		strconv.Itoa(f.FlowID),
		strconv.Itoa(f.ConnID),
		strconv.Itoa(f.Src),
		strconv.Itoa(f.Dst),
		f.Path,
		strconv.FormatInt(f.StartTime, 10),
		strconv.FormatInt(f.EndTime, 10),
		strconv.FormatInt(f.Duration, 10),
		strconv.FormatFloat(f.Bytes, 'f', -1, 64),
		strconv.FormatFloat(f.MeanBW, 'f', -1, 64),
	}
}

func connectionRow(c ConnectionRecord) []string {
	return []string{
		strconv.Itoa(c.ConnID),
		strconv.Itoa(c.JobID),
		strconv.Itoa(c.Src),
		strconv.Itoa(c.Dst),
		strconv.FormatFloat(c.TotalSize, 'f', -1, 64),
		strconv.FormatFloat(c.Sent, 'f', -1, 64),
		strconv.FormatInt(c.StartTime, 10),
		strconv.FormatInt(c.EndTime, 10),
		strconv.FormatInt(c.Duration, 10),
		strconv.FormatFloat(c.MeanBW, 'f', -1, 64),
		strconv.FormatBool(c.Completed),
	}
}

func linkRow(l LinkRecord) []string {
	return []string{
		strconv.Itoa(l.LinkID),
		strconv.Itoa(l.From),
		strconv.Itoa(l.To),
		strconv.FormatFloat(l.Capacity, 'f', -1, 64),
		strconv.FormatFloat(l.MeanUtil, 'f', -1, 64),
		strconv.Itoa(l.Failures),
	}
}

func jobRow(j JobRecord) []string {
	return []string{
		strconv.Itoa(j.JobID),
		strconv.FormatInt(j.StartTime, 10),
		strconv.FormatInt(j.EndTime, 10),
		strconv.FormatInt(j.Duration, 10),
		strconv.FormatBool(j.Completed),
	}
}

func assignmentRow(a AssignmentRecord) []string {
	return []string{
		strconv.FormatInt(a.SimTime, 10),
		strconv.FormatFloat(a.WallMillis, 'f', 3, 64),
		strconv.Itoa(a.Commodities),
		a.Error,
	}
}
