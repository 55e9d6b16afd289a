package model

import (
	"encoding/json"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{in: "1990-05-10", want: NewDate(1990, time.May, 10)},
		{in: " 1990-05-10 ", want: NewDate(1990, time.May, 10)},
		{in: "1990-05-10T23:30:00-03:00", want: NewDate(1990, time.May, 10)},
		{in: "10/05/1990", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want.Time) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDate_JSON(t *testing.T) {
	var v struct {
		BirthDate Date `json:"birth_date"`
	}
	if err := json.Unmarshal([]byte(`{"birth_date":"2001-12-31"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"birth_date":"2001-12-31"}` {
		t.Errorf("got %s", out)
	}

	if err := json.Unmarshal([]byte(`{"birth_date":null}`), &v); err != nil || !v.BirthDate.IsZero() {
		t.Errorf("null should give a zero date, got %v (%v)", v.BirthDate, err)
	}
	if err := json.Unmarshal([]byte(`{"birth_date":"31/12/2001"}`), &v); err == nil {
		t.Error("expected an error for a non ISO date")
	}
	if err := json.Unmarshal([]byte(`{"birth_date":20011231}`), &v); err == nil {
		t.Error("expected an error for a number")
	}
}

func TestDate_BSON(t *testing.T) {
	in := struct {
		BirthDate Date `bson:"birth_date"`
	}{BirthDate: NewDate(1985, time.February, 28)}

	raw, err := bson.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if typ := bson.Raw(raw).Lookup("birth_date").Type; typ != bson.TypeDateTime {
		t.Fatalf("stored as %v, want a BSON datetime", typ)
	}

	var out struct {
		BirthDate Date `bson:"birth_date"`
	}
	if err := bson.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.BirthDate.String() != "1985-02-28" {
		t.Errorf("got %s", out.BirthDate)
	}
}
