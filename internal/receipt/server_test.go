package receipt

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/receipt-classifier/internal/parsing"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		extractor   *mockExtractor
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		extractor = newMockExtractor()
		auth = BasicAuth{}
	})

	JustBeforeEach(func() {
		service := NewServiceWithDeps(db, extractor, storage, &mockIDGenerator{id: "up-1"}, &mockTimeSource{})
		server = NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.Handler().ServeHTTP)
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	get := func(path string) *http.Response {
		resp, err := http.Get(ghttpServer.URL() + path)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	readBody := func(resp *http.Response) []byte {
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return body
	}

	upload := func(filename, contentType string, data []byte) *http.Response {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := mw.CreatePart(h)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(mw.Close()).To(Succeed())

		resp, err := http.Post(ghttpServer.URL()+"/api/receipts", mw.FormDataContentType(), &body)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	Describe("GET /api/receipts", func() {
		When("records exist", func() {
			BeforeEach(func() {
				db.records["id1"] = &Record{ReceiptID: "id1", Store: "Lidl"}
				db.records["id2"] = &Record{ReceiptID: "id2", Store: "Prisma"}
			})

			It("returns all records as JSON", func() {
				resp := get("/api/receipts")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

				var records []*Record
				Expect(json.Unmarshal(readBody(resp), &records)).To(Succeed())
				Expect(records).To(HaveLen(2))
				Expect(records[0].Store).To(Equal("Lidl"))
			})
		})

		When("no records exist", func() {
			It("returns an empty array", func() {
				Expect(string(readBody(get("/api/receipts")))).To(Equal("[]\n"))
			})
		})

		When("the database fails", func() {
			BeforeEach(func() {
				db.listErr = errors.New("db error")
			})

			It("returns Internal Server Error", func() {
				resp := get("/api/receipts")
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			})
		})
	})

	Describe("POST /api/receipts", func() {
		When("the upload is extracted", func() {
			It("returns the created record", func() {
				resp := upload("kuitti.png", "image/png", []byte("png-bytes"))
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var record Record
				Expect(json.Unmarshal(readBody(resp), &record)).To(Succeed())
				Expect(record.ReceiptID).To(Equal("up-1"))
				Expect(record.Store).To(Equal("K-Market"))
				Expect(record.Lines).To(HaveLen(2))
				Expect(db.records).To(HaveKey("up-1"))
			})
		})

		When("the part has no content type", func() {
			It("guesses it from the extension", func() {
				resp := upload("kuitti.HEIC", "", []byte("heic-bytes"))
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				Expect(extractor.docs[0].ContentType).To(Equal("image/heic"))
			})
		})

		When("extraction fails", func() {
			BeforeEach(func() {
				extractor.outcome = failed(SourceVision, errors.New("oracle response format: no JSON found in response"))
			})

			It("returns the error as JSON", func() {
				resp := upload("kuitti.png", "image/png", []byte("png-bytes"))
				Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))

				var payload map[string]string
				Expect(json.Unmarshal(readBody(resp), &payload)).To(Succeed())
				Expect(payload["error"]).To(ContainSubstring("no JSON found"))
				Expect(storage.files).To(BeEmpty())
			})
		})

		When("no file is attached", func() {
			It("returns Bad Request", func() {
				var body bytes.Buffer
				mw := multipart.NewWriter(&body)
				Expect(mw.WriteField("note", "hello")).To(Succeed())
				Expect(mw.Close()).To(Succeed())

				resp, err := http.Post(ghttpServer.URL()+"/api/receipts", mw.FormDataContentType(), &body)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(string(readBody(resp))).To(ContainSubstring("No file was selected"))
			})
		})

		When("the body is not multipart", func() {
			It("returns Bad Request", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/receipts", "application/json", bytes.NewBufferString("{}"))
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("GET /api/receipts/{id}", func() {
		BeforeEach(func() {
			db.records["abc"] = &Record{ReceiptID: "abc", Store: "Alepa", Format: parsing.FormatSGroup}
		})

		It("returns the record", func() {
			resp := get("/api/receipts/abc")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(string(readBody(resp))).To(ContainSubstring(`"format":"S_GROUP"`))
		})

		It("returns Not Found for an unknown id", func() {
			resp := get("/api/receipts/nope")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("GET /api/receipts/{id}/file", func() {
		BeforeEach(func() {
			storage.files["abc.png"] = []byte("png-bytes")
			db.records["abc"] = &Record{ReceiptID: "abc", Filename: "abc.png", ContentType: "image/png"}
		})

		It("serves the file with its content type", func() {
			resp := get("/api/receipts/abc/file")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("image/png"))
			Expect(readBody(resp)).To(Equal([]byte("png-bytes")))
		})

		It("returns Not Found when the file is missing", func() {
			delete(storage.files, "abc.png")
			resp := get("/api/receipts/abc/file")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("DELETE /api/receipts/{id}", func() {
		del := func(id string) *http.Response {
			req, err := http.NewRequest(http.MethodDelete, ghttpServer.URL()+"/api/receipts/"+id, nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			return resp
		}

		BeforeEach(func() {
			storage.files["abc.png"] = []byte("png-bytes")
			db.records["abc"] = &Record{ReceiptID: "abc", Filename: "abc.png"}
		})

		It("returns No Content and removes the record", func() {
			Expect(del("abc").StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.records).To(BeEmpty())
		})

		It("returns Not Found for an unknown id", func() {
			Expect(del("nope").StatusCode).To(Equal(http.StatusNotFound))
		})

		When("the database fails", func() {
			BeforeEach(func() {
				db.deleteErr = errors.New("db error")
			})

			It("returns Internal Server Error", func() {
				Expect(del("abc").StatusCode).To(Equal(http.StatusInternalServerError))
			})
		})
	})

	Describe("GET /api/export.csv", func() {
		BeforeEach(func() {
			db.records["r1"] = &Record{ReceiptID: "r1", Store: "Lidl", Date: "1.2.24", Lines: []parsing.Line{{Number: 0, Text: "OMENA", IsProduct: true}}}
		})

		It("streams the rows as CSV", func() {
			resp := get("/api/export.csv")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("text/csv; charset=utf-8"))
			Expect(string(readBody(resp))).To(Equal("receipt_id,store,date,line_number,line_text,is_product\nr1,Lidl,1.2.24,0,OMENA,1\n"))
		})
	})

	Describe("CORS", func() {
		It("answers preflight requests", func() {
			req, err := http.NewRequest(http.MethodOptions, ghttpServer.URL()+"/api/receipts", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})

		It("adds headers to normal responses", func() {
			resp := get("/api/receipts")
			resp.Body.Close()
			Expect(resp.Header.Get("Access-Control-Allow-Methods")).To(ContainSubstring("DELETE"))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
		})

		request := func(credentials string) *http.Response {
			req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/receipts", nil)
			Expect(err).NotTo(HaveOccurred())
			if credentials != "" {
				req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(credentials)))
			}
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			return resp
		}

		It("rejects requests without credentials", func() {
			resp := request("")
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
		})

		It("rejects wrong credentials", func() {
			Expect(request("admin:wrong").StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("accepts the configured credentials", func() {
			Expect(request("admin:secret").StatusCode).To(Equal(http.StatusOK))
		})
	})
})
