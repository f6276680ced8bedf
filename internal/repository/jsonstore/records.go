package jsonstore

import (
	"time"

	"github.com/m3rciful/lumiabot/internal/model"
)

// timeLayout matches the LastRequested format of existing data files.
const timeLayout = "2006-01-02 15:04:05"

type userRecord struct {
	UserID        int64  `json:"UserID"`
	Fullname      string `json:"Fullname"`
	Username      string `json:"Username"`
	Bot           bool   `json:"Bot"`
	TotalRequests int    `json:"TotalRequests"`
	LastRequested string `json:"LastRequested"`
}

func (r userRecord) toModel() model.User {
	u := model.User{
		ID:            r.UserID,
		FullName:      r.Fullname,
		Username:      r.Username,
		IsBot:         r.Bot,
		TotalRequests: r.TotalRequests,
	}
	if ts, err := time.ParseInLocation(timeLayout, r.LastRequested, time.Local); err == nil {
		u.LastRequested = ts
	}
	return u
}

func fromUser(u model.User) userRecord {
	rec := userRecord{
		UserID:        u.ID,
		Fullname:      u.FullName,
		Username:      u.Username,
		Bot:           u.IsBot,
		TotalRequests: u.TotalRequests,
	}
	if !u.LastRequested.IsZero() {
		rec.LastRequested = u.LastRequested.In(time.Local).Format(timeLayout)
	}
	return rec
}

type adminRecord struct {
	UserID   int64  `json:"UserID"`
	Fullname string `json:"Fullname"`
	Username string `json:"Username"`
}

type blockedRecord struct {
	UserID   int64  `json:"UserID"`
	Fullname string `json:"Fullname"`
	Username string `json:"Username"`
	Reason   string `json:"Reason"`
}

type deviceRecord struct {
	ProductType  string       `json:"ProductType"`
	ProductCodes []codeRecord `json:"ProductCodes"`
	Emergency    struct {
		DownloadID *int `json:"DownloadID"`
	} `json:"Emergency"`
}

type codeRecord struct {
	ProductCode string `json:"ProductCode"`
	DownloadID  []int  `json:"DownloadID"`
}

func (r deviceRecord) toModel() model.Device {
	d := model.Device{
		ProductType:  model.NormalizeKey(r.ProductType),
		EmergencyRef: r.Emergency.DownloadID,
	}
	for _, c := range r.ProductCodes {
		d.Codes = append(d.Codes, model.ProductCode{
			Code:         model.NormalizeKey(c.ProductCode),
			DownloadRefs: c.DownloadID,
		})
	}
	return d
}

// ParseCatalog decodes a devices.json document.
func ParseCatalog(data []byte) (model.Catalog, error) {
	var recs []deviceRecord
	if err := unmarshal(data, &recs); err != nil {
		return nil, err
	}
	catalog := make(model.Catalog, 0, len(recs))
	for _, r := range recs {
		catalog = append(catalog, r.toModel())
	}
	return catalog, nil
}
