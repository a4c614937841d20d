package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Las fechas viajan como texto ISO-8601; una fecha ausente es "".

func decodeDate(field, value string) (time.Time, error) {
	t, ok := ParseDate(value)
	if !ok {
		return time.Time{}, fmt.Errorf("%s: fecha invalida %q", field, value)
	}
	return t, nil
}

func (a Attachment) MarshalJSON() ([]byte, error) {
	type plain Attachment
	return json.Marshal(struct {
		plain
		UploadedAt string `json:"uploadedAt"`
	}{plain(a), FormatDate(a.UploadedAt)})
}

func (a *Attachment) UnmarshalJSON(data []byte) error {
	type plain Attachment
	var raw struct {
		*plain
		UploadedAt string `json:"uploadedAt"`
	}
	raw.plain = (*plain)(a)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var err error
	a.UploadedAt, err = decodeDate("uploadedAt", raw.UploadedAt)
	return err
}

func (e Evidence) MarshalJSON() ([]byte, error) {
	type plain Evidence
	return json.Marshal(struct {
		plain
		SubmittedAt string `json:"submittedAt"`
	}{plain(e), FormatDate(e.SubmittedAt)})
}

func (e *Evidence) UnmarshalJSON(data []byte) error {
	type plain Evidence
	var raw struct {
		*plain
		SubmittedAt string `json:"submittedAt"`
	}
	raw.plain = (*plain)(e)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var err error
	e.SubmittedAt, err = decodeDate("submittedAt", raw.SubmittedAt)
	return err
}

func (c Case) MarshalJSON() ([]byte, error) {
	type plain Case
	return json.Marshal(struct {
		plain
		ArrivalDate string `json:"arrivalDate"`
		DueDate     string `json:"dueDate"`
		CreatedAt   string `json:"createdAt"`
	}{plain(c), FormatDate(c.ArrivalDate), FormatDate(c.DueDate), FormatDate(c.CreatedAt)})
}

func (c *Case) UnmarshalJSON(data []byte) error {
	type plain Case
	var raw struct {
		*plain
		ArrivalDate string `json:"arrivalDate"`
		DueDate     string `json:"dueDate"`
		CreatedAt   string `json:"createdAt"`
	}
	raw.plain = (*plain)(c)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var err error
	if c.ArrivalDate, err = decodeDate("arrivalDate", raw.ArrivalDate); err != nil {
		return err
	}
	if c.DueDate, err = decodeDate("dueDate", raw.DueDate); err != nil {
		return err
	}
	c.CreatedAt, err = decodeDate("createdAt", raw.CreatedAt)
	return err
}
