package model

import (
	"encoding/json"
	"testing"
)

func TestGradeValueUnmarshal(t *testing.T) {
	var v GradeValue
	if err := json.Unmarshal([]byte(`2.5`), &v); err != nil {
		t.Fatalf("number unmarshal failed: %v", err)
	}
	if !v.IsNumber || v.Number != 2.5 {
		t.Errorf("unexpected number value %+v", v)
	}

	if err := json.Unmarshal([]byte(`"4-"`), &v); err != nil {
		t.Fatalf("string unmarshal failed: %v", err)
	}
	if v.IsNumber || v.Raw != "4-" {
		t.Errorf("unexpected string value %+v", v)
	}

	if err := json.Unmarshal([]byte(`null`), &v); err != nil {
		t.Fatalf("null unmarshal failed: %v", err)
	}
	if !v.IsEmpty() {
		t.Errorf("null must be empty, got %+v", v)
	}
}

func TestGradeValueRoundTrip(t *testing.T) {
	raw := []byte(`{"value":"0~3+","isRepeatExam":true}`)
	var g RawGrade
	if err := json.Unmarshal(raw, &g); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if g.Value.Raw != "0~3+" || !g.IsRepeatExam {
		t.Errorf("unexpected grade %+v", g)
	}

	out, err := json.Marshal(g.Value)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(out) != `"0~3+"` {
		t.Errorf("unexpected marshal output %s", out)
	}
}
