// internal/service/order/infrastructure/adapter/cms_soap_adapter.go
package adapter

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"swiftlogistics/internal/pkg/httpclient"
	"swiftlogistics/internal/service/order/domain"
	"swiftlogistics/internal/service/order/domain/port"
)

const cmsSystem = "CMS"

// soapEnvelopeTemplate 是客户管理系统要求的文档格式。
// 字段顺序和命名空间是对方系统的契约，不能调整。
const soapEnvelopeTemplate = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
    <soap:Body>
        <SubmitOrder xmlns="http://cms.swiftlogistics.com/">
            <OrderId>%s</OrderId>
            <ClientId>%s</ClientId>
            <PickupAddress>%s</PickupAddress>
            <DeliveryAddress>%s</DeliveryAddress>
        </SubmitOrder>
    </soap:Body>
</soap:Envelope>`

// CMSSoapAdapter 实现了 port.ClientManagementService。
// 它把订单序列化为 SOAP/XML 文档提交给客户管理系统，
// 任何传输失败都通过 Degrade 转换为合成引用。
type CMSSoapAdapter struct {
	client  *httpclient.Client
	baseURL string
	timeout time.Duration
}

// NewCMSSoapAdapter 创建一个新的客户管理系统适配器。
func NewCMSSoapAdapter(client *httpclient.Client, baseURL string, timeout time.Duration) *CMSSoapAdapter {
	return &CMSSoapAdapter{client: client, baseURL: baseURL, timeout: timeout}
}

// RegisterOrder 把订单登记到客户管理系统，返回对方的引用号。
func (a *CMSSoapAdapter) RegisterOrder(ctx context.Context, order *domain.Order) (port.RegistrationResult, error) {
	return Degrade(ctx, cmsSystem, order.ID, a.timeout, func(callCtx context.Context) (string, error) {
		body := fmt.Sprintf(soapEnvelopeTemplate,
			order.ID, order.ClientID, order.PickupAddress, order.DeliveryAddress)

		headers := map[string]string{
			"Content-Type": "text/xml; charset=utf-8",
			"SOAPAction":   "http://cms.swiftlogistics.com/SubmitOrder",
		}

		resp, err := a.client.Do(callCtx, http.MethodPost, a.baseURL+"/soap", headers, []byte(body))
		if err != nil {
			return "", errors.Wrap(err, "cms soap call failed")
		}
		if resp.StatusCode != http.StatusOK {
			return "", errors.Errorf("cms returned status %d", resp.StatusCode)
		}

		ref, err := parseReferenceID(resp.Body)
		if err != nil {
			return "", err
		}
		if ref == "" {
			// 对方响应成功但缺少 ReferenceId 时的兜底，与现网行为一致
			ref = "CMS_" + order.ID
		}
		return ref, nil
	})
}

// parseReferenceID 在响应文档中查找 <ReferenceId> 元素。
// 不假设外层结构，逐 token 扫描，兼容对方系统不同版本的信封格式。
func parseReferenceID(body []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", nil
		}
		if err != nil {
			return "", errors.Wrap(err, "invalid cms response document")
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "ReferenceId" {
			var ref string
			if err := dec.DecodeElement(&ref, &se); err != nil {
				return "", errors.Wrap(err, "invalid ReferenceId element")
			}
			return ref, nil
		}
	}
}
