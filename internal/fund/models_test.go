package fund

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRecordJSONRowShape(t *testing.T) {
	r := Record{Code: "000001", Abbr: "HXCZHH", Name: "华夏成长混合", Extra: "混合型-灵活"}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["000001","HXCZHH","华夏成长混合","混合型-灵活"]` {
		t.Fatalf("记录应编码为上游数组行, 实际 %s", data)
	}

	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back != r {
		t.Fatalf("round-trip 不一致: %+v", back)
	}
}

func TestRecordUnmarshalTolerant(t *testing.T) {
	var short Record
	if err := json.Unmarshal([]byte(`["000001","HX"]`), &short); err != nil {
		t.Fatal(err)
	}
	if short.Code != "000001" || short.Abbr != "HX" || short.Name != "" {
		t.Fatalf("短行应容忍缺失单元格: %+v", short)
	}

	var long Record
	if err := json.Unmarshal([]byte(`["000001","HX","名称","备注","多余","再多余"]`), &long); err != nil {
		t.Fatal(err)
	}
	if long.Extra != "备注" {
		t.Fatalf("多余单元格应丢弃: %+v", long)
	}

	var numeric Record
	if err := json.Unmarshal([]byte(`[1725,"HX","名称","备注"]`), &numeric); err != nil {
		t.Fatal(err)
	}
	if numeric.Code != "1725" {
		t.Fatalf("数字单元格应转字符串: %+v", numeric)
	}
}

func TestSnapshotFileFormat(t *testing.T) {
	raw := `{"ts":"2024-05-13T02:00:00Z","data":[["000001","HX","名称","备注"],["000002","AB","名称2","备注2"]]}`

	var s Snapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatal(err)
	}
	if !s.TS.Equal(time.Date(2024, 5, 13, 2, 0, 0, 0, time.UTC)) {
		t.Fatalf("ts 解析错误: %s", s.TS)
	}
	if len(s.Records) != 2 || s.Records[1].Code != "000002" {
		t.Fatalf("data 解析错误: %+v", s.Records)
	}
}

func TestNavSeriesLatest(t *testing.T) {
	var empty NavSeries
	if _, ok := empty.Latest(); ok {
		t.Fatal("空序列不应有最新点")
	}

	series := NavSeries{
		{Date: time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC), UnitNAV: 1.1},
		{Date: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), UnitNAV: 1.2},
	}
	latest, ok := series.Latest()
	if !ok || latest.UnitNAV != 1.2 {
		t.Fatalf("最新点错误: %+v", latest)
	}
}
