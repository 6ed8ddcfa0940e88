// Package transport runs DL/T 645 transactions over a serial (RS-485) bus.
//
// A Client is the bus master. It writes request frames built by the dlt645
// codec and waits for the addressed meter to answer:
//
//	cfg, err := transport.NewConfig("/dev/ttyUSB0",
//		transport.WithVariant(dlt645.Revised),
//		transport.WithBaudRate(2400),
//		transport.WithRetryLimit(1),
//	)
//	if err != nil {
//		return err
//	}
//
//	client, err := transport.NewClient(cfg)
//	if err != nil {
//		return err
//	}
//	if err := client.Open(ctx); err != nil {
//		return err
//	}
//	defer client.Close()
//
//	v, err := client.Read(ctx, "1234567890AB", dlt645.RevisedPhaseAVoltage)
//
// Received bytes are collected in a fixed-size ring buffer and cut into
// frames by start byte, declared length and end byte, so replies split over
// several reads, wake-up bytes and line noise are handled. Replies are
// matched to the waiting request by meter address.
package transport
