// internal/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"time"
)

// formatKRW renders a won amount with thousands separators, matching the
// ko-KR locale output the emails were designed around.
func formatKRW(amount int64) string {
	s := strconv.FormatInt(amount, 10)
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	var buf bytes.Buffer
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			buf.WriteByte(',')
		}
		buf.WriteRune(r)
	}
	if neg {
		return "-" + buf.String()
	}
	return buf.String()
}

func formatKST(t time.Time) string {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		loc = time.FixedZone("KST", 9*60*60)
	}
	return t.In(loc).Format("2006. 01. 02. 15:04:05")
}

type emailData struct {
	ProductName   string
	UnitPrice     string
	Quantity      int
	TotalPrice    string
	BuyerName     string
	BuyerEmail    string
	BuyerPhone    string
	BuyerAddress  string
	Message       string
	SellerName    string
	SellerCompany string
	OrderedAt     string
}

var sellerEmailTmpl = template.Must(template.New("seller").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #FDF6ED; margin: 0; padding: 20px;">
  <table cellpadding="0" cellspacing="0" border="0" width="100%" style="max-width: 600px; margin: 0 auto;">
    <tr>
      <td>
        <table cellpadding="0" cellspacing="0" border="0" width="100%" style="background: linear-gradient(135deg, #C41E3A, #a01830); border-radius: 16px 16px 0 0;">
          <tr>
            <td style="padding: 30px; text-align: center;">
              <div style="font-size: 40px; line-height: 1;">🏮🧧</div>
              <h1 style="margin: 10px 0 0; font-size: 24px; color: white;">BNI 마포 설선물관</h1>
              <p style="margin: 10px 0 0; color: rgba(255,255,255,0.9); font-size: 14px;">새로운 주문이 접수되었습니다!</p>
            </td>
          </tr>
        </table>
        <table cellpadding="0" cellspacing="0" border="0" width="100%" style="background: white;">
          <tr>
            <td style="padding: 30px;">
              <h2 style="margin: 0 0 15px; color: #2D1B14; font-size: 18px;">📦 주문 상품</h2>
              <table cellpadding="0" cellspacing="0" border="0" width="100%" style="background: #FDF6ED; border-radius: 12px; margin-bottom: 20px;">
                <tr>
                  <td style="padding: 15px 20px; border-bottom: 1px solid #eee;">
                    <table width="100%"><tr>
                      <td style="color: #666; font-size: 14px;">상품명</td>
                      <td style="text-align: right; font-weight: 600; color: #2D1B14;">{{.ProductName}}</td>
                    </tr></table>
                  </td>
                </tr>
                <tr>
                  <td style="padding: 15px 20px; border-bottom: 1px solid #eee;">
                    <table width="100%"><tr>
                      <td style="color: #666; font-size: 14px;">단가</td>
                      <td style="text-align: right; font-weight: 600; color: #2D1B14;">{{.UnitPrice}}원</td>
                    </tr></table>
                  </td>
                </tr>
                <tr>
                  <td style="padding: 15px 20px;">
                    <table width="100%"><tr>
                      <td style="color: #666; font-size: 14px;">수량</td>
                      <td style="text-align: right; font-weight: 600; color: #2D1B14;">{{.Quantity}}개</td>
                    </tr></table>
                  </td>
                </tr>
              </table>
              <table cellpadding="0" cellspacing="0" border="0" width="100%" style="background: #C41E3A; border-radius: 12px; margin-bottom: 25px;">
                <tr>
                  <td style="padding: 15px 20px; text-align: center; color: white; font-size: 20px; font-weight: bold;">
                    총 금액: {{.TotalPrice}}원
                  </td>
                </tr>
              </table>
              <h2 style="margin: 0 0 15px; color: #2D1B14; font-size: 18px;">👤 주문자 정보</h2>
              <table cellpadding="0" cellspacing="0" border="0" width="100%" style="background: #FDF6ED; border-radius: 12px; margin-bottom: 20px;">
                <tr>
                  <td style="padding: 15px 20px; border-bottom: 1px solid #eee;">
                    <table width="100%"><tr>
                      <td style="color: #666; font-size: 14px;">이름</td>
                      <td style="text-align: right; font-weight: 600; color: #2D1B14;">{{.BuyerName}}</td>
                    </tr></table>
                  </td>
                </tr>
                <tr>
                  <td style="padding: 15px 20px; border-bottom: 1px solid #eee;">
                    <table width="100%"><tr>
                      <td style="color: #666; font-size: 14px;">이메일</td>
                      <td style="text-align: right; font-weight: 600; color: #2D1B14;">{{if .BuyerEmail}}{{.BuyerEmail}}{{else}}-{{end}}</td>
                    </tr></table>
                  </td>
                </tr>
                <tr>
                  <td style="padding: 15px 20px;">
                    <table width="100%"><tr>
                      <td style="color: #666; font-size: 14px;">연락처</td>
                      <td style="text-align: right; font-weight: 600; color: #2D1B14;">{{.BuyerPhone}}</td>
                    </tr></table>
                  </td>
                </tr>
                {{if .BuyerAddress}}
                <tr>
                  <td style="padding: 15px 20px;">
                    <table width="100%"><tr>
                      <td style="color: #666; font-size: 14px;">배송지</td>
                      <td style="text-align: right; font-weight: 600; color: #2D1B14;">{{.BuyerAddress}}</td>
                    </tr></table>
                  </td>
                </tr>
                {{end}}
                {{if .Message}}
                <tr>
                  <td style="padding: 15px 20px;">
                    <table width="100%"><tr>
                      <td style="color: #666; font-size: 14px;">요청사항</td>
                      <td style="text-align: right; font-weight: 600; color: #2D1B14;">{{.Message}}</td>
                    </tr></table>
                  </td>
                </tr>
                {{end}}
              </table>
              <p style="color: #666; font-size: 14px; text-align: center; margin: 20px 0 0;">
                주문 일시: {{.OrderedAt}}
              </p>
            </td>
          </tr>
        </table>
        <table cellpadding="0" cellspacing="0" border="0" width="100%" style="background: #2D1B14; border-radius: 0 0 16px 16px;">
          <tr>
            <td style="padding: 20px; text-align: center; color: #FDF6ED; font-size: 12px;">
              이 주문은 BNI 마포 설선물관을 통해 접수되었습니다.<br>
              © 2025 BNI 마포 정보람 디렉터
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`))

var buyerEmailTmpl = template.Must(template.New("buyer").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #FDF6ED; margin: 0; padding: 20px;">
  <table cellpadding="0" cellspacing="0" border="0" width="100%" style="max-width: 600px; margin: 0 auto;">
    <tr>
      <td>
        <table cellpadding="0" cellspacing="0" border="0" width="100%" style="background: linear-gradient(135deg, #C41E3A, #a01830); border-radius: 16px 16px 0 0;">
          <tr>
            <td style="padding: 30px; text-align: center;">
              <div style="font-size: 40px; line-height: 1;">🏮✨</div>
              <h1 style="margin: 10px 0 0; font-size: 24px; color: white;">BNI 마포 설선물관</h1>
              <p style="margin: 10px 0 0; color: rgba(255,255,255,0.9); font-size: 14px;">주문이 접수되었습니다!</p>
            </td>
          </tr>
        </table>
        <table cellpadding="0" cellspacing="0" border="0" width="100%" style="background: white;">
          <tr>
            <td style="padding: 30px;">
              <p style="font-size: 16px; color: #2D1B14; margin: 0 0 20px;">
                <strong>{{.BuyerName}}</strong>님, 주문해주셔서 감사합니다! 🙏
              </p>
              <h2 style="margin: 0 0 15px; color: #2D1B14; font-size: 18px;">📦 주문 내역</h2>
              <table cellpadding="0" cellspacing="0" border="0" width="100%" style="background: #FDF6ED; border-radius: 12px; margin-bottom: 20px;">
                <tr>
                  <td style="padding: 15px 20px; border-bottom: 1px solid #eee;">
                    <table width="100%"><tr>
                      <td style="color: #666; font-size: 14px;">상품명</td>
                      <td style="text-align: right; font-weight: 600; color: #2D1B14;">{{.ProductName}}</td>
                    </tr></table>
                  </td>
                </tr>
                <tr>
                  <td style="padding: 15px 20px; border-bottom: 1px solid #eee;">
                    <table width="100%"><tr>
                      <td style="color: #666; font-size: 14px;">수량</td>
                      <td style="text-align: right; font-weight: 600; color: #2D1B14;">{{.Quantity}}개</td>
                    </tr></table>
                  </td>
                </tr>
                <tr>
                  <td style="padding: 15px 20px;">
                    <table width="100%"><tr>
                      <td style="color: #666; font-size: 14px;">단가</td>
                      <td style="text-align: right; font-weight: 600; color: #2D1B14;">{{.UnitPrice}}원</td>
                    </tr></table>
                  </td>
                </tr>
              </table>
              <table cellpadding="0" cellspacing="0" border="0" width="100%" style="background: #C41E3A; border-radius: 12px; margin-bottom: 25px;">
                <tr>
                  <td style="padding: 15px 20px; text-align: center; color: white; font-size: 20px; font-weight: bold;">
                    총 금액: {{.TotalPrice}}원
                  </td>
                </tr>
              </table>
              <h2 style="margin: 0 0 15px; color: #2D1B14; font-size: 18px;">🏪 판매자 정보</h2>
              <table cellpadding="0" cellspacing="0" border="0" width="100%" style="background: #FDF6ED; border-radius: 12px; margin-bottom: 20px;">
                <tr>
                  <td style="padding: 15px 20px;">
                    <table width="100%"><tr>
                      <td style="color: #666; font-size: 14px;">판매자</td>
                      <td style="text-align: right; font-weight: 600; color: #2D1B14;">{{.SellerName}}</td>
                    </tr></table>
                  </td>
                </tr>
                {{if .SellerCompany}}
                <tr>
                  <td style="padding: 15px 20px;">
                    <table width="100%"><tr>
                      <td style="color: #666; font-size: 14px;">회사/브랜드</td>
                      <td style="text-align: right; font-weight: 600; color: #2D1B14;">{{.SellerCompany}}</td>
                    </tr></table>
                  </td>
                </tr>
                {{end}}
              </table>
              <table cellpadding="0" cellspacing="0" border="0" width="100%" style="background: #fff3cd; border: 1px solid #ffc107; border-radius: 8px; margin-bottom: 20px;">
                <tr>
                  <td style="padding: 15px;">
                    <strong style="color: #856404;">📌 안내사항</strong><br>
                    <span style="color: #856404; font-size: 14px;">판매자가 곧 연락드릴 예정입니다. 문의사항이 있으시면 판매자에게 직접 연락해주세요.</span>
                  </td>
                </tr>
              </table>
              <p style="color: #666; font-size: 14px; text-align: center; margin: 20px 0 0;">
                주문 일시: {{.OrderedAt}}
              </p>
            </td>
          </tr>
        </table>
        <table cellpadding="0" cellspacing="0" border="0" width="100%" style="background: #2D1B14; border-radius: 0 0 16px 16px;">
          <tr>
            <td style="padding: 20px; text-align: center; color: #FDF6ED; font-size: 12px;">
              BNI 마포 설선물관을 이용해주셔서 감사합니다.<br>
              © 2025 BNI 마포 정보람 디렉터
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`))

func renderSellerEmail(data emailData) (string, error) {
	var buf bytes.Buffer
	if err := sellerEmailTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render seller email: %w", err)
	}
	return buf.String(), nil
}

func renderBuyerEmail(data emailData) (string, error) {
	var buf bytes.Buffer
	if err := buyerEmailTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render buyer email: %w", err)
	}
	return buf.String(), nil
}
