// Package capture records HAL datagrams into a pcap file that Wireshark and
// tcpdump can open. Each datagram is wrapped in synthetic Ethernet, IP and UDP
// headers built from the real socket addresses.
package capture
